package repository

import (
	"context"
	"errors"
	"fmt"

	"buggfix/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	Create(user *domain.User) error
	FindByEmail(email string) (*domain.User, error)
	FindByID(id string) (*domain.User, error)
	EmailExists(email string) (bool, error)
}

type userRepository struct {
	client *kivik.Client
	dbName string
}

func NewUserRepository(client *kivik.Client, dbName string) UserRepository {
	return &userRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *userRepository) Create(user *domain.User) error {
	db := r.client.DB(r.dbName)

	docID := fmt.Sprintf("user:%s", user.ID)
	doc := map[string]interface{}{
		"doc_type":     "user",
		"user_id":      user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"password":     user.Password,
		"created_at":   user.CreatedAt,
		"updated_at":   user.UpdatedAt,
	}

	if _, err := db.Put(context.Background(), docID, doc); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) FindByEmail(email string) (*domain.User, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type": "user",
			"email":    email,
		},
		"limit": 1,
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrUserNotFound
	}

	return scanUser(rows)
}

func (r *userRepository) FindByID(id string) (*domain.User, error) {
	db := r.client.DB(r.dbName)

	row := db.Get(context.Background(), fmt.Sprintf("user:%s", id))

	var doc userDoc
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return doc.toUser(), nil
}

func (r *userRepository) EmailExists(email string) (bool, error) {
	_, err := r.FindByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type userDoc struct {
	ID          string `json:"_id"`
	Rev         string `json:"_rev,omitempty"`
	DocType     string `json:"doc_type"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (d *userDoc) toUser() *domain.User {
	u := &domain.User{
		ID:          d.UserID,
		Email:       d.Email,
		DisplayName: d.DisplayName,
		Password:    d.Password,
	}
	u.CreatedAt, _ = parseTime(d.CreatedAt)
	u.UpdatedAt, _ = parseTime(d.UpdatedAt)
	return u
}

func scanUser(rows *kivik.ResultSet) (*domain.User, error) {
	var doc userDoc
	if err := rows.ScanDoc(&doc); err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return doc.toUser(), nil
}
