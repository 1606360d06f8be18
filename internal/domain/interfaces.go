package domain

import "context"

// MessagingGateway отправляет личные сообщения через API платформы.
type MessagingGateway interface {
	Authenticate(ctx context.Context) error
	UploadMedia(ctx context.Context, path string) (MediaHandle, error)
	SendDirectMessage(ctx context.Context, recipientID, text string, media MediaHandle) error
}

// TextGenerator строит текст сообщения по промпту.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RotationStore хранит курсоры ротации. Документ читается целиком перед
// циклом и записывается целиком после него.
type RotationStore interface {
	Load(ctx context.Context) (Cursors, error)
	Save(ctx context.Context, cursors Cursors) error
}

// CycleRecorder сохраняет историю циклов рассылки.
type CycleRecorder interface {
	SaveCycle(ctx context.Context, summary CycleSummary) error
}

// EventSink получает событие по каждому обработанному получателю.
type EventSink interface {
	Publish(ctx context.Context, result DispatchResult) error
}
