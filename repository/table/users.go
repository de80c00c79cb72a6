package table

import (
	"github.com/go-jet/jet/v2/postgres"
)

var Users = newUsersTable("public", "users", "")

type usersTable struct {
	postgres.Table

	UserID       postgres.ColumnString
	Email        postgres.ColumnString
	DisplayName  postgres.ColumnString
	Role         postgres.ColumnString
	PasswordHash postgres.ColumnString
	CreatedAt    postgres.ColumnTimestampz
	UpdatedAt    postgres.ColumnTimestampz

	AllColumns     postgres.ColumnList
	MutableColumns postgres.ColumnList
}

func newUsersTable(schemaName, tableName, alias string) *usersTable {
	var (
		UserIDColumn       = postgres.StringColumn("user_id")
		EmailColumn        = postgres.StringColumn("email")
		DisplayNameColumn  = postgres.StringColumn("display_name")
		RoleColumn         = postgres.StringColumn("role")
		PasswordHashColumn = postgres.StringColumn("password_hash")
		CreatedAtColumn    = postgres.TimestampzColumn("created_at")
		UpdatedAtColumn    = postgres.TimestampzColumn("updated_at")
		allColumns         = postgres.ColumnList{UserIDColumn, EmailColumn, DisplayNameColumn, RoleColumn, PasswordHashColumn, CreatedAtColumn, UpdatedAtColumn}
		mutableColumns     = postgres.ColumnList{EmailColumn, DisplayNameColumn, RoleColumn, PasswordHashColumn, CreatedAtColumn, UpdatedAtColumn}
	)

	return &usersTable{
		Table: postgres.NewTable(schemaName, tableName, alias, allColumns...),

		UserID:       UserIDColumn,
		Email:        EmailColumn,
		DisplayName:  DisplayNameColumn,
		Role:         RoleColumn,
		PasswordHash: PasswordHashColumn,
		CreatedAt:    CreatedAtColumn,
		UpdatedAt:    UpdatedAtColumn,

		AllColumns:     allColumns,
		MutableColumns: mutableColumns,
	}
}
