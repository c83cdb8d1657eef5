// Package testutil provides shared fixtures for sift tests: a users/posts
// entity pair, filter schemas over them, seed SQL and deterministic
// request id generators.
package testutil

import (
	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/schema"
)

// Users returns the users entity.
//
//	id INTEGER, name TEXT, email TEXT NULL, age INTEGER, active BOOLEAN, created (created_at) TIMESTAMP
func Users() *schema.Entity {
	return schema.MustEntity(schema.Entity{
		Name: "users",
		Key:  "id",
		Attributes: []schema.Attribute{
			{Name: "id", Type: ir.TypeInt},
			{Name: "name", Type: ir.TypeString},
			{Name: "email", Type: ir.TypeString},
			{Name: "age", Type: ir.TypeInt},
			{Name: "active", Type: ir.TypeBool},
			{Name: "created", Column: "created_at", Type: ir.TypeTime},
		},
	})
}

// Posts returns the posts entity, joined to users through author_id.
func Posts() *schema.Entity {
	return schema.MustEntity(schema.Entity{
		Name: "posts",
		Key:  "id",
		Attributes: []schema.Attribute{
			{Name: "id", Type: ir.TypeInt},
			{Name: "title", Type: ir.TypeString},
			{Name: "author_id", Type: ir.TypeInt},
			{Name: "published", Type: ir.TypeBool},
		},
		Joins: []schema.Join{
			{Table: "users", On: `"users"."id" = "posts"."author_id"`},
		},
	})
}

// UserFilter declares a filter over users exercising every operator.
func UserFilter(users *schema.Entity) *schema.Definition {
	return schema.MustDefine("UserFilter", schema.Constants{
		Entity:           users,
		SearchableFields: []string{"name", "email"},
	},
		schema.Field{Name: "name"},
		schema.Field{Name: "name__neq"},
		schema.Field{Name: "name__like"},
		schema.Field{Name: "name__ilike"},
		schema.Field{Name: "age"},
		schema.Field{Name: "age__gt"},
		schema.Field{Name: "age__gte"},
		schema.Field{Name: "age__lt"},
		schema.Field{Name: "age__lte"},
		schema.Field{Name: "age__in", List: true},
		schema.Field{Name: "id__not_in"},
		schema.Field{Name: "email__isnull"},
		schema.Field{Name: "email__not"},
		schema.Field{Name: "active"},
		schema.Field{Name: "created__gte"},
		schema.Field{Name: "search"},
		schema.Field{Name: "order_by"},
	)
}

// PostFilter declares a filter over posts with UserFilter nested under "author".
func PostFilter(posts, users *schema.Entity) *schema.Definition {
	author, err := schema.WithPrefix("author", UserFilter(users))
	if err != nil {
		panic(err)
	}
	return schema.MustDefine("PostFilter", schema.Constants{Entity: posts},
		schema.Field{Name: "title__ilike"},
		schema.Field{Name: "published"},
		schema.Field{Name: "author", Nested: author},
		schema.Field{Name: "order_by", Default: "-id"},
	)
}

// Registry returns a registry holding both entities and both filters.
func Registry() *schema.Registry {
	users, posts := Users(), Posts()
	r := schema.NewRegistry()
	for _, err := range []error{
		r.AddEntity(users),
		r.AddEntity(posts),
		r.Add(UserFilter(users)),
		r.Add(PostFilter(posts, users)),
	} {
		if err != nil {
			panic(err)
		}
	}
	return r
}

// SchemaSQL creates the fixture tables. Valid for SQLite and PostgreSQL.
const SchemaSQL = `
CREATE TABLE users (
	id         INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT,
	age        INTEGER NOT NULL,
	active     BOOLEAN NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE posts (
	id        INTEGER PRIMARY KEY,
	title     TEXT NOT NULL,
	author_id INTEGER NOT NULL REFERENCES users(id),
	published BOOLEAN NOT NULL
);
`

// SeedSQL inserts the fixture rows.
//
//	users: 1 Alice 30, 2 Bob 25, 3 Carol 35 (no email, inactive), 4 Dave 25
//	posts: 1 "Hello world" by Alice, 2 "Go tips" by Bob, 3 "Draft" by Alice (unpublished)
const SeedSQL = `
INSERT INTO users (id, name, email, age, active, created_at) VALUES
	(1, 'Alice', 'alice@example.com', 30, TRUE, '2024-01-01 00:00:00+00:00'),
	(2, 'Bob', 'bob@example.com', 25, TRUE, '2024-02-01 00:00:00+00:00'),
	(3, 'Carol', NULL, 35, FALSE, '2024-03-01 00:00:00+00:00'),
	(4, 'Dave', 'dave@sample.org', 25, TRUE, '2024-04-01 00:00:00+00:00');
INSERT INTO posts (id, title, author_id, published) VALUES
	(1, 'Hello world', 1, TRUE),
	(2, 'Go tips', 2, TRUE),
	(3, 'Draft', 1, FALSE);
`
