package models

import (
	"time"
)

type Role string

const (
	RoleRealtor Role = "realtor"
	RoleBuyer   Role = "buyer"
)

func (r Role) Valid() bool {
	return r == RoleRealtor || r == RoleBuyer
}

// User is the users/{uid} document mapping an identity to a role.
type User struct {
	UID       string    `bson:"_id" json:"uid" firestore:"-"`
	Role      Role      `bson:"role" json:"role" firestore:"role"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
}

// Identity is the authenticated caller.
type Identity struct {
	UID   string
	Email string
	Role  Role
}
