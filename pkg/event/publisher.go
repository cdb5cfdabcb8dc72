package event

// Publisher はイベントの受け取り手。
// Publishは長時間ブロックせず、失敗を呼び出し元に返さない。
type Publisher interface {
	Publish(evt *Event)
}

// Fanout は複数のPublisherへ同じイベントを順に渡す。
type Fanout []Publisher

// Publish はevtを登録順にすべてのPublisherへ渡す。nilは無視する。
func (f Fanout) Publish(evt *Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(evt)
		}
	}
}
