package preference

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gradquest/appcore/internal/model"
)

// クエリパラメータ規約。バックエンドのデプロイによりどちらかを受け付ける。
const (
	ParamUserID      = "userId"
	ParamUserIDSnake = "user_id"
)

// Backend はフローが必要とするバックエンド呼び出しのインターフェース。
type Backend interface {
	SavePreferences(ctx context.Context, param, userID string, profile *model.PreferenceProfile) error
	FetchPreferences(ctx context.Context, param, userID string) (*model.PreferenceProfile, error)
	TopSchools(ctx context.Context, userID string) ([]*model.RankedSchool, error)
}

// SessionSource はフローがユーザーIDの解決に使うセッションストアのインターフェース。
type SessionSource interface {
	Current() *model.Session
	Refresh(ctx context.Context) *model.Session
}

// Input はフォームから受け取る生の入力値。数値は文字列のまま受け取り、
// 送信時にCoerceNumberで強制変換する。選択項目は表示ラベルでもenum値でもよい。
// 修了要件はrequirementType文字列か、capstone/greの2つのトグルのどちらでも
// 指定できる（文字列が指定されている場合はそちらが優先される）。
type Input struct {
	Budget                 string `json:"budget"`
	GPA                    string `json:"gpa"`
	TargetCountry          string `json:"targetCountry"`
	SchoolYear             string `json:"schoolYear"`
	ExpectedGraduationDate string `json:"expectedGraduationDate"`
	SchoolType             string `json:"schoolType"`
	State                  string `json:"state"`
	Major                  string `json:"major"`
	EnrollmentType         string `json:"enrollmentType"`
	Modality               string `json:"modality"`
	RequirementType        string `json:"requirementType"`
	Capstone               *bool  `json:"capstone,omitempty"`
	GRE                    *bool  `json:"gre,omitempty"`
}

// requirementType は修了要件のenum値を決定する。
func (in *Input) requirementType() string {
	if in.RequirementType != "" {
		return MapRequirementType(in.RequirementType)
	}
	if in.Capstone != nil || in.GRE != nil {
		capstone := in.Capstone != nil && *in.Capstone
		gre := in.GRE != nil && *in.GRE
		return MapRequirementToggles(capstone, gre)
	}
	return ""
}

// Result はインテークフローの送信結果。
// Savedがfalseの場合、推薦リストは古いプロファイルに基づく可能性がある。
type Result struct {
	Profile *model.PreferenceProfile `json:"profile"`
	Schools []*model.RankedSchool    `json:"schools"`
	Saved   bool                     `json:"saved"`
}

// Flow は志望条件インテークのオーケストレーションを行う。
type Flow struct {
	backend  Backend
	sessions SessionSource
	validate *validator.Validate
	logger   *slog.Logger
}

// NewFlow はFlowを生成する。
func NewFlow(backend Backend, sessions SessionSource, logger *slog.Logger) *Flow {
	return &Flow{
		backend:  backend,
		sessions: sessions,
		validate: validator.New(),
		logger:   logger,
	}
}

// resolveUserID は現在のセッションからユーザーIDを解決する。
// セッションが未取得の場合は一度だけリフレッシュして再確認する。
func (f *Flow) resolveUserID(ctx context.Context) (string, error) {
	if id := f.sessions.Current().EffectiveUserID(); id != "" {
		return id, nil
	}
	if id := f.sessions.Refresh(ctx).EffectiveUserID(); id != "" {
		return id, nil
	}
	return "", model.NewNotSignedInError()
}

// BuildProfile は生の入力値からプロファイルを構築する。
// 数値は0への強制変換、選択項目はenum値への変換を行い、
// 変換後のプロファイルをバリデーションする。
func (f *Flow) BuildProfile(input *Input) (*model.PreferenceProfile, error) {
	profile := &model.PreferenceProfile{
		Budget:                 CoerceNumber(input.Budget),
		GPA:                    CoerceNumber(input.GPA),
		TargetCountry:          input.TargetCountry,
		SchoolYear:             input.SchoolYear,
		ExpectedGraduationDate: input.ExpectedGraduationDate,
		SchoolType:             MapSchoolType(input.SchoolType),
		State:                  input.State,
		Major:                  input.Major,
		EnrollmentType:         MapEnrollmentType(input.EnrollmentType),
		Modality:               MapModality(input.Modality),
		RequirementType:        input.requirementType(),
	}

	if err := f.validate.Struct(profile); err != nil {
		f.logger.Warn("preference profile validation failed",
			slog.String("error", err.Error()),
		)
		return nil, model.NewInvalidPreferenceError("選択項目が未入力か不正な値です")
	}
	return profile, nil
}

// LoadExisting は保存済みのプロファイルを取得する。
// userIdパラメータ規約で404相当の失敗をした場合はuser_id規約で再試行する。
// どちらでも取得できない場合はnilを返す（未保存として扱う）。
func (f *Flow) LoadExisting(ctx context.Context) (*model.PreferenceProfile, error) {
	userID, err := f.resolveUserID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := f.backend.FetchPreferences(ctx, ParamUserID, userID)
	if err == nil {
		return profile, nil
	}

	profile, err = f.backend.FetchPreferences(ctx, ParamUserIDSnake, userID)
	if err != nil {
		f.logger.Info("no existing preference profile",
			slog.String("user_id", userID),
		)
		return nil, nil
	}
	return profile, nil
}

// Submit はプロファイルを保存し、推薦校の上位リストを取得する。
// 保存に失敗しても推薦取得は続行し、Result.Saved=falseとエラーの両方で
// 失敗を可視化する（黙って成功扱いにしない）。
func (f *Flow) Submit(ctx context.Context, input *Input) (*Result, error) {
	userID, err := f.resolveUserID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := f.BuildProfile(input)
	if err != nil {
		return nil, err
	}

	saved := true
	var saveErr *model.APIError
	if err := f.backend.SavePreferences(ctx, ParamUserID, userID, profile); err != nil {
		if err2 := f.backend.SavePreferences(ctx, ParamUserIDSnake, userID, profile); err2 != nil {
			f.logger.Warn("failed to save preference profile",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			saved = false
			saveErr = model.NewPreferenceSaveError("バックエンドへの保存リクエストが失敗しました")
		}
	}

	schools, err := f.backend.TopSchools(ctx, userID)
	if err != nil {
		f.logger.Warn("failed to fetch school ranking",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return &Result{Profile: profile, Saved: saved}, model.NewRankingFetchError("バックエンドへのリクエストが失敗しました")
	}

	result := &Result{
		Profile: profile,
		Schools: schools,
		Saved:   saved,
	}
	if saveErr != nil {
		return result, saveErr
	}
	return result, nil
}
