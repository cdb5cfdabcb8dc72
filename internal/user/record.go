package user

import "time"

// Record は永続化されたユーザーレコード。
type Record struct {
	// ID はユーザーの一意識別子（UUID）。作成後は変わらない。
	ID string
	// Name はユーザー名。
	Name string `validate:"required"`
	// Email は通知先のメールアドレス。
	Email string `validate:"required,email"`
	// State は所属する州。States のいずれか。
	State string `validate:"required,state"`
	// CreatedAt は作成日時。作成後は変わらない。
	CreatedAt time.Time
	// UpdatedAt は更新日時。更新のたびに進む。
	UpdatedAt time.Time
}

// CreateParams はユーザー作成時の入力。
type CreateParams struct {
	Name  string
	Email string
	State string
}

// UpdateParams はユーザー更新時の入力。
// nilのフィールドは現在の値を維持する。
type UpdateParams struct {
	Name  *string
	Email *string
	State *string
}

// apply は指定されたフィールドのみをrecに反映する。
func (p UpdateParams) apply(rec *Record) {
	if p.Name != nil {
		rec.Name = normalize(*p.Name)
	}
	if p.Email != nil {
		rec.Email = normalize(*p.Email)
	}
	if p.State != nil {
		rec.State = normalize(*p.State)
	}
}

// StateCount は州ごとのユーザー数。
type StateCount struct {
	State string
	Count int64
}
