package models

import "time"

type User struct {
	ID           string    `json:"userId" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	LastLogin    time.Time `json:"lastLogin" bson:"lastLogin"`
}
