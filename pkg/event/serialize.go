package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoData はイベントにデータが含まれていないことを表す。
var ErrNoData = errors.New("イベントデータがありません")

// New は新しいイベントを生成する。
// dataはJSONにシリアライズしてDataに格納する。集約IDは必須。
func New(aggregateID string, aggregateType AggregateType, eventType Type, data any) (*Event, error) {
	if aggregateID == "" {
		return nil, fmt.Errorf("イベント %s の集約IDが空です", eventType)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
	}

	return &Event{
		ID:            uuid.NewString(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          payload,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// NewUserEvent はユーザー系イベントを生成する。
func NewUserEvent(userID string, eventType Type, data UserData) (*Event, error) {
	return New(userID, AggregateTypeUser, eventType, data)
}

// DecodeData はイベントのDataを指定された型に復元する。
// Dataが空の場合はErrNoDataを返す。
func DecodeData[T any](e *Event) (*T, error) {
	if e == nil || len(e.Data) == 0 {
		return nil, ErrNoData
	}

	var data T
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("イベント %s のデータ復元に失敗: %w", e.EventType, err)
	}
	return &data, nil
}
