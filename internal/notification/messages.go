package notification

import (
	"fmt"

	"github.com/nao1215/userhub/pkg/event"
)

// messageFor はユーザーイベントから送信するメールを組み立てる。
func messageFor(evt *event.Event) (Message, error) {
	data, err := event.DecodeData[event.UserData](evt)
	if err != nil {
		return Message{}, err
	}

	switch evt.EventType {
	case event.TypeUserCreated:
		return Message{
			To:      data.Email,
			Subject: "Welcome!",
			Body:    fmt.Sprintf("Hello %s, your account has been created.", data.Name),
		}, nil
	case event.TypeUserUpdated:
		return Message{
			To:      data.Email,
			Subject: "Profile Updated",
			Body:    fmt.Sprintf("Hello %s, your account details were updated.", data.Name),
		}, nil
	case event.TypeUserDeleted:
		return Message{
			To:      data.Email,
			Subject: "Account Deleted",
			Body:    fmt.Sprintf("Goodbye %s, your account has been removed.", data.Name),
		}, nil
	default:
		return Message{}, fmt.Errorf("未対応のイベント種別: %s", evt.EventType)
	}
}
