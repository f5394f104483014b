package domain

import "time"

// User is an admin account that can sign in with a magic code.
type User struct {
	UserID    string    `json:"id" dynamodbav:"user_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	Phone     *string   `json:"phone" dynamodbav:"phone,omitempty"`
	Enable    bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateUserRequest struct {
	Email string  `json:"email" validate:"required,email"`
	Phone *string `json:"phone" validate:"omitempty,e164"`
}
