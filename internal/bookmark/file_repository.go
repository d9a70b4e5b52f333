package bookmark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gradquest/appcore/internal/model"
)

// storeFileName はローカルデータファイル名。
const storeFileName = "saved_applications.json"

// fileContents はデータファイルのシリアライズ形式。
// ブックマークリストとチュートリアルフラグの2エントリを1ファイルに保持する。
type fileContents struct {
	SavedApplications []*model.SavedApplication `json:"savedApplications"`
	TutorialCompleted bool                      `json:"tutorialCompleted"`
}

// FileRepository はブックマークをローカルファイルに永続化するRepository実装。
// 書き込みは一時ファイルへ書いてからrenameすることで、クラッシュ時にも
// 破損したファイルが残らないようにする。
type FileRepository struct {
	path string

	mu sync.Mutex
}

// NewFileRepository はFileRepositoryを生成する。
// dataDirが存在しない場合は作成する。
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileRepository{
		path: filepath.Join(dataDir, storeFileName),
	}, nil
}

// LoadBookmarks は永続化済みのブックマークリストを読み込む。
// ファイルが存在しない場合は空リストを返す。
func (r *FileRepository) LoadBookmarks(ctx context.Context) ([]*model.SavedApplication, error) {
	contents, err := r.read()
	if err != nil {
		return nil, err
	}
	return contents.SavedApplications, nil
}

// SaveBookmarks はブックマークリスト全体を永続化する。
func (r *FileRepository) SaveBookmarks(ctx context.Context, apps []*model.SavedApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := r.readLocked()
	if err != nil {
		// 既存データが読めない場合でも書き込みは成功させる
		contents = &fileContents{}
	}
	contents.SavedApplications = apps
	return r.writeLocked(contents)
}

// TutorialDone はチュートリアル完了フラグを読み込む。
func (r *FileRepository) TutorialDone(ctx context.Context) (bool, error) {
	contents, err := r.read()
	if err != nil {
		return false, err
	}
	return contents.TutorialCompleted, nil
}

// SetTutorialDone はチュートリアル完了フラグを書き込む。
func (r *FileRepository) SetTutorialDone(ctx context.Context, done bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := r.readLocked()
	if err != nil {
		contents = &fileContents{}
	}
	contents.TutorialCompleted = done
	return r.writeLocked(contents)
}

func (r *FileRepository) read() (*fileContents, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readLocked()
}

func (r *FileRepository) readLocked() (*fileContents, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &fileContents{}, nil
		}
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("failed to parse data file: %w", err)
	}
	return &contents, nil
}

func (r *FileRepository) writeLocked(contents *fileContents) error {
	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data file: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}
