package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// User is a notification recipient with the contact info each channel
// targets.
type User struct {
	ID    int64
	Name  string
	Email string
	Phone string
}

// Notification is one stored notification record.
type Notification struct {
	ID        int64
	UserID    int64
	Type      string
	Title     string
	Content   string
	CreatedAt time.Time
	Read      bool
}

// CreateUser inserts a user and returns it with its assigned ID.
func (s *Store) CreateUser(ctx context.Context, name, email, phone string) (User, error) {
	u := User{Name: name, Email: email, Phone: phone}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO users (name, email, phone) VALUES ($1, $2, $3) RETURNING id`,
		name, email, phone,
	).Scan(&u.ID)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// ListUsers returns all users.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, email, phone FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser fetches a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, email, phone FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// CreateNotification inserts a notification record and returns it.
func (s *Store) CreateNotification(ctx context.Context, userID int64, typ, title, content string) (Notification, error) {
	n := Notification{UserID: userID, Type: typ, Title: title, Content: content}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO notifications (user_id, type, title, content)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at, read`,
		userID, typ, title, content,
	).Scan(&n.ID, &n.CreatedAt, &n.Read)
	if err != nil {
		return Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns a user's notifications newest first, optionally
// filtered by type and read state.
func (s *Store) ListNotifications(ctx context.Context, userID int64, typ string, read *bool) ([]Notification, error) {
	query := `SELECT id, user_id, type, title, content, created_at, read
		FROM notifications WHERE user_id = $1`
	args := []interface{}{userID}

	if typ != "" {
		args = append(args, typ)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if read != nil {
		args = append(args, *read)
		query += fmt.Sprintf(" AND read = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Content, &n.CreatedAt, &n.Read); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// DeleteNotification removes a notification by ID.
func (s *Store) DeleteNotification(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
