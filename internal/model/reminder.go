package model

// Reminder は出願関連の締切リマインダーを表す。
// 本体はバックエンドが管理し、クライアントは取得・削除・完了操作のみを行う。
type Reminder struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	DueDate   string `json:"dueDate"` // YYYY-MM-DD
	Completed bool   `json:"completed,omitempty"`

	// Urgent は締切が2週間以内に迫っているかどうか。
	// バックエンドの値ではなくクライアント側で算出する。
	Urgent bool `json:"urgent"`
}
