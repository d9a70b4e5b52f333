package model

// PreferenceProfile はバックエンドに送信する志望条件プロファイルを表す。
// フォーム状態以外でローカルに保持されることはない。
// 数値フィールドは送信前に有限数へ強制変換される（パース不能は0になる）。
type PreferenceProfile struct {
	Budget                 float64 `json:"budget"`
	GPA                    float64 `json:"gpa"`
	TargetCountry          string  `json:"targetCountry,omitempty"`
	SchoolYear             string  `json:"schoolYear,omitempty"`
	ExpectedGraduationDate string  `json:"expectedGraduationDate,omitempty"`
	SchoolType             string  `json:"schoolType" validate:"oneof=PRIVATE PUBLIC BOTH"`
	State                  string  `json:"state,omitempty"`
	Major                  string  `json:"major,omitempty"`
	EnrollmentType         string  `json:"enrollmentType" validate:"oneof=FULL_TIME PART_TIME"`
	Modality               string  `json:"modality" validate:"oneof=IN_PERSON HYBRID ONLINE"`
	RequirementType        string  `json:"requirementType" validate:"oneof=CAPSTONE NEITHER GRE BOTH"`
}
