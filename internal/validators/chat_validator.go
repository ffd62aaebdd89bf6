package validators

type FindOrCreateChatRequest struct {
	MemberID string `json:"member_id" validate:"required,object_id"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
	Type    string `json:"type" validate:"omitempty,oneof=text location"`
}

type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

func ValidateSendMessageRequest(req *SendMessageRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateFindOrCreateChatRequest(req *FindOrCreateChatRequest) ValidationErrors {
	return ValidateStruct(req)
}
