package repository

import (
	"github.com/helixir/structstore/internal/domain"
)

// UserSchema describes the users table backing domain.User.
var UserSchema = Schema{
	Entity:    "user",
	Table:     "users",
	IDColumn:  "id",
	Generated: []string{"created_at", "updated_at"},
	Patchable: []string{"username", "email", "full_name", "active"},
}

// UserAdapter is the shared record adapter for domain.User.
var UserAdapter = MustNewAdapter[domain.User](UserSchema)

// UserRepository is the repository contract for users.
type UserRepository = Repository[string, domain.User]

// NewUserRepository creates the PostgreSQL user repository.
func NewUserRepository(db DBTX) *PgRepository[string, domain.User] {
	return NewPgRepository[string, domain.User](db, UserAdapter)
}
