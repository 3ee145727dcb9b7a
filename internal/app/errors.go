package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")

	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyAdmin     = errors.New("user is already an admin")
	ErrNotAdmin         = errors.New("user is not an admin")
	ErrCannotDemoteSelf = errors.New("admins cannot demote themselves")

	ErrInsufficientInventory = errors.New("not enough images or active questions to build a session")

	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionNotOwned         = errors.New("session belongs to another user")
	ErrSessionAlreadyCompleted = errors.New("session already completed")
	ErrQuestionNotInSession    = errors.New("question is not part of this session")
	ErrQuestionAlreadyAnswered = errors.New("question already answered in this session")
	ErrImageNotInSession       = errors.New("selected image is not part of this session")

	ErrQuestionNotFound   = errors.New("question not found")
	ErrAnnotationNotFound = errors.New("annotation not found")
)
