package authflow

// NoticeKind tags a Notice.
type NoticeKind uint8

const (
	NoticeInfo NoticeKind = iota + 1
	NoticeError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeInfo:
		return "success"
	case NoticeError:
		return "error"
	default:
		return ""
	}
}

func (k NoticeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Notice is the single user-visible message slot: Info(message) or Error(message).
type Notice struct {
	Kind    NoticeKind `json:"type"`
	Message string     `json:"message"`
}

func InfoNotice(message string) *Notice {
	return &Notice{Kind: NoticeInfo, Message: message}
}

func ErrorNotice(message string) *Notice {
	return &Notice{Kind: NoticeError, Message: message}
}

func (n *Notice) IsError() bool {
	return n != nil && n.Kind == NoticeError
}
