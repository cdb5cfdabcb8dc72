package event

import "testing"

// recordingPublisher は受け取ったイベントIDを記録するPublisher。
type recordingPublisher struct {
	name string
	log  *[]string
}

func (p recordingPublisher) Publish(evt *Event) {
	*p.log = append(*p.log, p.name+":"+evt.ID)
}

// TestFanout はFanoutが登録順にイベントを渡すことを検証する。
func TestFanout(t *testing.T) {
	t.Parallel()

	var log []string
	f := Fanout{
		recordingPublisher{name: "history", log: &log},
		nil,
		recordingPublisher{name: "notifier", log: &log},
	}

	f.Publish(&Event{ID: "evt-1"})

	want := []string{"history:evt-1", "notifier:evt-1"}
	if len(log) != len(want) {
		t.Fatalf("呼び出し回数 = %d, want %d", len(log), len(want))
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}
