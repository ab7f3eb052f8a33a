package bus

func (b *Bus) OnWake(fn func()) Subscription {
	return b.Subscribe(KindWake, func(Event) { fn() })
}

func (b *Bus) OnListening(fn func(listening bool)) Subscription {
	return b.Subscribe(KindListening, func(ev Event) { fn(ev.Listening) })
}

func (b *Bus) OnResult(fn func(text string)) Subscription {
	return b.Subscribe(KindResult, func(ev Event) { fn(ev.Text) })
}

func (b *Bus) OnSpeaking(fn func(speaking bool)) Subscription {
	return b.Subscribe(KindSpeaking, func(ev Event) { fn(ev.Speaking) })
}

func (b *Bus) OnRequestListen(fn func()) Subscription {
	return b.Subscribe(KindRequestListen, func(Event) { fn() })
}

func (b *Bus) OnSpeakRequest(fn func(text string)) Subscription {
	return b.Subscribe(KindSpeakRequest, func(ev Event) { fn(ev.Text) })
}

func (b *Bus) EmitWake() {
	b.Publish(Event{Kind: KindWake})
}

func (b *Bus) EmitListening(listening bool) {
	b.Publish(Event{Kind: KindListening, Listening: listening})
}

func (b *Bus) EmitResult(text string) {
	b.Publish(Event{Kind: KindResult, Text: text})
}

func (b *Bus) EmitSpeaking(speaking bool) {
	b.Publish(Event{Kind: KindSpeaking, Speaking: speaking})
}

// RequestListen asks the engine to open a session without a wake trigger.
func (b *Bus) RequestListen() {
	b.Publish(Event{Kind: KindRequestListen})
}

// RequestSpeak asks the engine to voice text through the speech output.
func (b *Bus) RequestSpeak(text string) {
	b.Publish(Event{Kind: KindSpeakRequest, Text: text})
}
