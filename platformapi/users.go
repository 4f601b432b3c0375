package platformapi

import (
	"context"
	"fmt"
)

// GetUser fetches a single user by id; used to label sessions and derive room names.
func (c *Client) GetUser(ctx context.Context, id int) (User, error) {
	var u User
	if err := c.do(ctx, "GET", fmt.Sprintf("/userauths/api/users/%d/", id), nil, nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// FindUser resolves a username to a user record.
func (c *Client) FindUser(ctx context.Context, username string) (User, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user %q not found", username)
}

// ListUsers fetches all platform users.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, "GET", "/userauths/api/users/", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}
