package model

import "time"

// SavedApplication はユーザーがブックマークした学校・プログラムを表す。
// 保存リスト内でIDは一意であり、挿入順（新しいものが先頭）が維持される。
type SavedApplication struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Program string    `json:"program,omitempty"`
	Urgent  bool      `json:"urgent"`
	Link    string    `json:"link,omitempty"`
	SavedAt time.Time `json:"savedAt"`
}

// RankedSchool はバックエンドのランキングAPIが返す推薦校を表す。
// 読み取り専用であり、クライアント側で所有・変更しない。
type RankedSchool struct {
	ID          string `json:"id,omitempty"`
	SchoolID    string `json:"schoolId,omitempty"`
	Name        string `json:"name"`
	ProgramName string `json:"programName,omitempty"`
	WebsiteURL  string `json:"websiteUrl,omitempty"`
}

// EffectiveID はブックマークのキーとなる識別子を返す。
// id → schoolId → name の順にフォールバックする。
func (r *RankedSchool) EffectiveID() string {
	if r.ID != "" {
		return r.ID
	}
	if r.SchoolID != "" {
		return r.SchoolID
	}
	return r.Name
}
