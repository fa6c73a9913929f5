package client

import "golang.org/x/text/language"

// Messages: тексты уведомлений форм.
type Messages struct {
	ErrorTitle         string
	SuccessTitle       string
	EmptyContent       string
	RemoteFallback     string
	ReplySent          string
	ConversationOpen   string
	ConversationClosed string
	ConversationLocked string
	SubmitInProgress   string
}

// Первый тег используется по умолчанию.
var supported = []language.Tag{language.Arabic, language.English}

var matcher = language.NewMatcher(supported)

var catalog = map[language.Tag]Messages{
	language.Arabic: {
		ErrorTitle:         "خطأ",
		SuccessTitle:       "تم",
		EmptyContent:       "يرجى كتابة الرد",
		RemoteFallback:     "تعذّر إرسال الرد، حاول مرة أخرى",
		ReplySent:          "تم إرسال الرد",
		ConversationOpen:   "تم إرسال الرد وتبقى المحادثة مفتوحة",
		ConversationClosed: "تم إرسال الرد وأُغلقت المحادثة",
		ConversationLocked: "المحادثة مغلقة، لا يمكنك الرد حتى يعيد المختص فتحها",
		SubmitInProgress:   "جارٍ الإرسال",
	},
	language.English: {
		ErrorTitle:         "Error",
		SuccessTitle:       "Done",
		EmptyContent:       "Please write a reply",
		RemoteFallback:     "Could not send the reply, please try again",
		ReplySent:          "Reply sent",
		ConversationOpen:   "Reply sent; the conversation stays open",
		ConversationClosed: "Reply sent; the conversation is closed",
		ConversationLocked: "This conversation is closed. You can reply again once it is reopened",
		SubmitInProgress:   "Sending",
	},
}

// MessagesFor выбирает ближайший поддерживаемый каталог для локалей
// (теги BCP 47 или значения Accept-Language).
func MessagesFor(locales ...string) Messages {
	_, idx := language.MatchStrings(matcher, locales...)
	return catalog[supported[idx]]
}
