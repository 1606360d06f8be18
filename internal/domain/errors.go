package domain

import "errors"

// ErrRateLimited возвращается шлюзом при превышении лимита запросов платформы.
var ErrRateLimited = errors.New("rate limited")

// ErrForbidden возвращается, когда платформа запрещает отправку: блокировка
// или отключённые личные сообщения у получателя.
var ErrForbidden = errors.New("forbidden")

// ErrNoCandidates возвращается, если у получателя нет ни одного сообщения.
var ErrNoCandidates = errors.New("нет доступных сообщений для получателя")

// ErrRecipientNotFound возвращается при поиске по неизвестному id.
var ErrRecipientNotFound = errors.New("получатель не найден")
