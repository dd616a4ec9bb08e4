package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a fresh identifier. Both store backends use ObjectID hex
// strings so ids look the same whichever backend is configured.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether id has the shape of an identifier
func ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}
