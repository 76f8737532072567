package tasksvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ichigozero/todokit/validation"
)

const minTextLength = 5

// Task is a todo item owned by the user that created it. CompletedAt is a
// Unix timestamp in milliseconds, set exactly when Completed is true.
type Task struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Text        string    `gorm:"not null" json:"text"`
	Completed   bool      `gorm:"not null" json:"completed"`
	CompletedAt *int64    `json:"completedAt"`
	CreatorID   string    `gorm:"index;size:36;not null" json:"creatorId"`
	CreatedAt   time.Time `json:"-"`
}

// Patch is the client-editable subset of a task. Completed is true only
// when the request carried the JSON literal true; any other value, absent
// included, means not completed.
type Patch struct {
	Text      *string
	Completed bool
}

func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text      *string         `json:"text"`
		Completed json.RawMessage `json:"completed"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Text = raw.Text
	p.Completed = bytes.Equal(bytes.TrimSpace(raw.Completed), []byte("true"))
	return nil
}

func (p Patch) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Text      *string `json:"text,omitempty"`
		Completed bool    `json:"completed"`
	}{p.Text, p.Completed})
}

// NormalizeText trims text and checks it against the task rules.
func NormalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	err := validation.First(
		validation.Required("text", text),
		validation.MinLength("text", text, minTextLength),
	)
	return text, err
}

// TaskRepository scopes every lookup by the creator's user ID.
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	FindAll(ctx context.Context, creatorID string) ([]Task, error)
	Find(ctx context.Context, creatorID, taskID string) (Task, error)
	Update(ctx context.Context, task Task) (Task, error)
	Delete(ctx context.Context, creatorID, taskID string) (Task, error)
}

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTaskNotFound    = errors.New("task not found")
)
