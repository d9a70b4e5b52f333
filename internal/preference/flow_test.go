package preference

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/gradquest/appcore/internal/model"
)

// --- モック定義 ---

type mockBackend struct {
	savePreferencesFn  func(ctx context.Context, param, userID string, profile *model.PreferenceProfile) error
	fetchPreferencesFn func(ctx context.Context, param, userID string) (*model.PreferenceProfile, error)
	topSchoolsFn       func(ctx context.Context, userID string) ([]*model.RankedSchool, error)
}

func (m *mockBackend) SavePreferences(ctx context.Context, param, userID string, profile *model.PreferenceProfile) error {
	if m.savePreferencesFn != nil {
		return m.savePreferencesFn(ctx, param, userID, profile)
	}
	return nil
}

func (m *mockBackend) FetchPreferences(ctx context.Context, param, userID string) (*model.PreferenceProfile, error) {
	if m.fetchPreferencesFn != nil {
		return m.fetchPreferencesFn(ctx, param, userID)
	}
	return &model.PreferenceProfile{}, nil
}

func (m *mockBackend) TopSchools(ctx context.Context, userID string) ([]*model.RankedSchool, error) {
	if m.topSchoolsFn != nil {
		return m.topSchoolsFn(ctx, userID)
	}
	return nil, nil
}

type mockSessions struct {
	current   *model.Session
	refreshFn func(ctx context.Context) *model.Session
}

func (m *mockSessions) Current() *model.Session {
	if m.current != nil {
		return m.current
	}
	return model.UnauthenticatedSession()
}

func (m *mockSessions) Refresh(ctx context.Context) *model.Session {
	if m.refreshFn != nil {
		m.current = m.refreshFn(ctx)
		return m.current
	}
	return m.Current()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func validInput() *Input {
	return &Input{
		Budget:          "50000",
		GPA:             "3.5",
		TargetCountry:   "US",
		SchoolType:      "Private",
		Major:           "Computer Science",
		EnrollmentType:  "Full-time",
		Modality:        "In person",
		RequirementType: "GRE",
	}
}

// --- テスト ---

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"50000", 50000},
		{"3.5", 3.5},
		{" 2.75 ", 2.75},
		{"-1.5", -1.5},
		// パース不能・非有限値は0へ強制変換される
		{"", 0},
		{"abc", 0},
		{"12abc", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"-Inf", 0},
	}

	for _, tt := range tests {
		got := CoerceNumber(tt.input)
		if math.IsNaN(got) || math.IsInf(got, 0) {
			t.Errorf("CoerceNumber(%q) = %v, must be finite", tt.input, got)
			continue
		}
		if got != tt.want {
			t.Errorf("CoerceNumber(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestMapLabels_AllLabelsCovered(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"SchoolType", MapSchoolType, "Private", "PRIVATE"},
		{"SchoolType", MapSchoolType, "Public", "PUBLIC"},
		{"SchoolType", MapSchoolType, "Both", "BOTH"},
		{"EnrollmentType", MapEnrollmentType, "Full-time", "FULL_TIME"},
		{"EnrollmentType", MapEnrollmentType, "Part-time", "PART_TIME"},
		{"Modality", MapModality, "In person", "IN_PERSON"},
		{"Modality", MapModality, "Hybrid", "HYBRID"},
		{"Modality", MapModality, "Online", "ONLINE"},
		{"RequirementType", MapRequirementType, "Capstone", "CAPSTONE"},
		{"RequirementType", MapRequirementType, "Neither", "NEITHER"},
		{"RequirementType", MapRequirementType, "GRE", "GRE"},
		{"RequirementType", MapRequirementType, "Both", "BOTH"},
		// enum値そのものも受け付ける
		{"SchoolType", MapSchoolType, "PRIVATE", "PRIVATE"},
		{"Modality", MapModality, "IN_PERSON", "IN_PERSON"},
		// 未知のラベルは空文字列
		{"SchoolType", MapSchoolType, "Charter", ""},
		{"Modality", MapModality, "", ""},
	}

	for _, tt := range tests {
		if got := tt.fn(tt.in); got != tt.want {
			t.Errorf("Map%s(%q) = %q, want %q", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestMapRequirementToggles_AllCombinations(t *testing.T) {
	tests := []struct {
		capstone bool
		gre      bool
		want     string
	}{
		{false, false, "NEITHER"},
		{true, false, "CAPSTONE"},
		{false, true, "GRE"},
		{true, true, "BOTH"},
	}

	for _, tt := range tests {
		if got := MapRequirementToggles(tt.capstone, tt.gre); got != tt.want {
			t.Errorf("MapRequirementToggles(%v, %v) = %q, want %q", tt.capstone, tt.gre, got, tt.want)
		}
	}
}

func TestFlow_BuildProfile_RequirementFromToggles(t *testing.T) {
	f := NewFlow(&mockBackend{}, &mockSessions{}, testLogger())
	boolPtr := func(b bool) *bool { return &b }

	input := validInput()
	input.RequirementType = ""
	input.Capstone = boolPtr(true)
	input.GRE = boolPtr(true)

	profile, err := f.BuildProfile(input)
	if err != nil {
		t.Fatalf("BuildProfile error = %v", err)
	}
	if profile.RequirementType != "BOTH" {
		t.Errorf("RequirementType = %q, want BOTH", profile.RequirementType)
	}

	// 片方のトグルだけ指定された場合、もう片方はオフとして扱う
	input.Capstone = nil
	input.GRE = boolPtr(false)
	profile, err = f.BuildProfile(input)
	if err != nil {
		t.Fatalf("BuildProfile error = %v", err)
	}
	if profile.RequirementType != "NEITHER" {
		t.Errorf("RequirementType = %q, want NEITHER", profile.RequirementType)
	}
}

func TestFlow_BuildProfile_RequirementStringWinsOverToggles(t *testing.T) {
	f := NewFlow(&mockBackend{}, &mockSessions{}, testLogger())
	boolPtr := func(b bool) *bool { return &b }

	input := validInput()
	input.RequirementType = "Capstone"
	input.Capstone = boolPtr(false)
	input.GRE = boolPtr(true)

	profile, err := f.BuildProfile(input)
	if err != nil {
		t.Fatalf("BuildProfile error = %v", err)
	}
	if profile.RequirementType != "CAPSTONE" {
		t.Errorf("RequirementType = %q, want CAPSTONE", profile.RequirementType)
	}
}

func TestFlow_BuildProfile_CoercesAndMaps(t *testing.T) {
	f := NewFlow(&mockBackend{}, &mockSessions{}, testLogger())

	input := validInput()
	input.Budget = "not-a-number"
	input.GPA = ""

	profile, err := f.BuildProfile(input)
	if err != nil {
		t.Fatalf("BuildProfile error = %v", err)
	}

	if profile.Budget != 0 || profile.GPA != 0 {
		t.Errorf("budget = %v, gpa = %v, want 0, 0", profile.Budget, profile.GPA)
	}
	if profile.SchoolType != "PRIVATE" {
		t.Errorf("SchoolType = %q, want PRIVATE", profile.SchoolType)
	}
	if profile.EnrollmentType != "FULL_TIME" {
		t.Errorf("EnrollmentType = %q, want FULL_TIME", profile.EnrollmentType)
	}
	if profile.Modality != "IN_PERSON" {
		t.Errorf("Modality = %q, want IN_PERSON", profile.Modality)
	}
	if profile.RequirementType != "GRE" {
		t.Errorf("RequirementType = %q, want GRE", profile.RequirementType)
	}
}

func TestFlow_BuildProfile_RejectsUnknownEnum(t *testing.T) {
	f := NewFlow(&mockBackend{}, &mockSessions{}, testLogger())

	input := validInput()
	input.SchoolType = "Charter"

	_, err := f.BuildProfile(input)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidPreference {
		t.Errorf("BuildProfile error = %v, want %s", err, model.ErrCodeInvalidPreference)
	}
}

func TestFlow_Submit_Success(t *testing.T) {
	var savedProfile *model.PreferenceProfile
	var savedUserID string
	backend := &mockBackend{
		savePreferencesFn: func(ctx context.Context, param, userID string, profile *model.PreferenceProfile) error {
			savedUserID = userID
			savedProfile = profile
			return nil
		},
		topSchoolsFn: func(ctx context.Context, userID string) ([]*model.RankedSchool, error) {
			return []*model.RankedSchool{
				{SchoolID: "s1", Name: "Example University"},
				{SchoolID: "s2", Name: "Another University"},
			}, nil
		},
	}
	sessions := &mockSessions{current: &model.Session{UserID: "u1", Name: "Taro"}}
	f := NewFlow(backend, sessions, testLogger())

	result, err := f.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Submit error = %v", err)
	}

	if !result.Saved {
		t.Error("Saved = false, want true")
	}
	if len(result.Schools) != 2 {
		t.Errorf("len(Schools) = %d, want 2", len(result.Schools))
	}
	if savedUserID != "u1" {
		t.Errorf("saved userID = %q, want u1", savedUserID)
	}
	if savedProfile == nil || savedProfile.Budget != 50000 {
		t.Errorf("saved profile = %+v", savedProfile)
	}
}

func TestFlow_Submit_ResolvesUserIDViaRefresh(t *testing.T) {
	backend := &mockBackend{}
	sessions := &mockSessions{
		refreshFn: func(ctx context.Context) *model.Session {
			return &model.Session{ID: "fallback-id", Name: "Taro"}
		},
	}
	f := NewFlow(backend, sessions, testLogger())

	result, err := f.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Submit error = %v", err)
	}
	if !result.Saved {
		t.Error("Saved = false, want true")
	}
}

func TestFlow_Submit_NotSignedIn(t *testing.T) {
	f := NewFlow(&mockBackend{}, &mockSessions{}, testLogger())

	_, err := f.Submit(context.Background(), validInput())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNotSignedIn {
		t.Errorf("Submit error = %v, want %s", err, model.ErrCodeNotSignedIn)
	}
}

func TestFlow_Submit_SaveFailureIsSurfaced(t *testing.T) {
	backend := &mockBackend{
		savePreferencesFn: func(ctx context.Context, param, userID string, profile *model.PreferenceProfile) error {
			return errors.New("backend rejected the save")
		},
		topSchoolsFn: func(ctx context.Context, userID string) ([]*model.RankedSchool, error) {
			return []*model.RankedSchool{{SchoolID: "s1", Name: "Example University"}}, nil
		},
	}
	sessions := &mockSessions{current: &model.Session{UserID: "u1", Name: "Taro"}}
	f := NewFlow(backend, sessions, testLogger())

	result, err := f.Submit(context.Background(), validInput())

	// 保存失敗は黙って成功扱いにせず、結果とエラーの両方で可視化する
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodePreferenceSave {
		t.Fatalf("Submit error = %v, want %s", err, model.ErrCodePreferenceSave)
	}
	if result == nil {
		t.Fatal("result should still carry the fetched ranking")
	}
	if result.Saved {
		t.Error("Saved = true, want false")
	}
	if len(result.Schools) != 1 {
		t.Errorf("len(Schools) = %d, want 1", len(result.Schools))
	}
}

func TestFlow_Submit_SaveRetriesSnakeCaseConvention(t *testing.T) {
	var params []string
	backend := &mockBackend{
		savePreferencesFn: func(ctx context.Context, param, userID string, profile *model.PreferenceProfile) error {
			params = append(params, param)
			if param == ParamUserID {
				return errors.New("unknown parameter")
			}
			return nil
		},
	}
	sessions := &mockSessions{current: &model.Session{UserID: "u1", Name: "Taro"}}
	f := NewFlow(backend, sessions, testLogger())

	result, err := f.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Submit error = %v", err)
	}

	if len(params) != 2 || params[0] != ParamUserID || params[1] != ParamUserIDSnake {
		t.Errorf("params = %v, want [userId user_id]", params)
	}
	if !result.Saved {
		t.Error("Saved = false, want true (snake_case retry succeeded)")
	}
}

func TestFlow_Submit_RankingFetchFailure(t *testing.T) {
	backend := &mockBackend{
		topSchoolsFn: func(ctx context.Context, userID string) ([]*model.RankedSchool, error) {
			return nil, errors.New("backend down")
		},
	}
	sessions := &mockSessions{current: &model.Session{UserID: "u1", Name: "Taro"}}
	f := NewFlow(backend, sessions, testLogger())

	result, err := f.Submit(context.Background(), validInput())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeRankingFetch {
		t.Fatalf("Submit error = %v, want %s", err, model.ErrCodeRankingFetch)
	}
	// 保存自体は成功している
	if result == nil || !result.Saved {
		t.Error("result.Saved should be true when only the ranking fetch fails")
	}
}

func TestFlow_LoadExisting_FallsBackToSnakeCase(t *testing.T) {
	backend := &mockBackend{
		fetchPreferencesFn: func(ctx context.Context, param, userID string) (*model.PreferenceProfile, error) {
			if param == ParamUserID {
				return nil, errors.New("unknown parameter")
			}
			return &model.PreferenceProfile{Major: "CS"}, nil
		},
	}
	sessions := &mockSessions{current: &model.Session{UserID: "u1", Name: "Taro"}}
	f := NewFlow(backend, sessions, testLogger())

	profile, err := f.LoadExisting(context.Background())
	if err != nil {
		t.Fatalf("LoadExisting error = %v", err)
	}
	if profile == nil || profile.Major != "CS" {
		t.Errorf("profile = %+v, want snake_case fallback result", profile)
	}
}

func TestFlow_LoadExisting_MissingProfileIsNil(t *testing.T) {
	backend := &mockBackend{
		fetchPreferencesFn: func(ctx context.Context, param, userID string) (*model.PreferenceProfile, error) {
			return nil, errors.New("not found")
		},
	}
	sessions := &mockSessions{current: &model.Session{UserID: "u1", Name: "Taro"}}
	f := NewFlow(backend, sessions, testLogger())

	profile, err := f.LoadExisting(context.Background())
	if err != nil {
		t.Fatalf("LoadExisting error = %v", err)
	}
	if profile != nil {
		t.Errorf("profile = %+v, want nil for missing profile", profile)
	}
}
