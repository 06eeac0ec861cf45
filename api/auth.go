package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/canteenhq/canteen-go/core"
)

// Credentials are the admin/staff login inputs.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest starts the student register -> OTP verify flow.
type RegisterRequest struct {
	Name           string `json:"name"`
	RegistrationNo string `json:"registrationNo"`
	Email          string `json:"email"`
	Password       string `json:"password"`
}

// VerifyRequest completes registration with the emailed OTP.
type VerifyRequest struct {
	RegistrationNo string `json:"registrationNo"`
	OTP            string `json:"otp"`
}

// StudentLoginRequest is the returning-student login input.
type StudentLoginRequest struct {
	RegistrationNo string `json:"registrationNo"`
	Password       string `json:"password"`
}

// AdminLogin authenticates an admin or staff member and returns the
// identity together with the bearer token.
func (c *Client) AdminLogin(ctx context.Context, creds Credentials) (core.Identity, string, error) {
	const op = "api.AdminLogin"
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return core.Identity{}, "", &core.ClientError{
			Op:      op,
			Kind:    "validation",
			Message: "Username and password are required.",
			Err:     core.ErrValidation,
		}
	}
	creds.Username = strings.TrimSpace(creds.Username)

	env, err := c.do(ctx, http.MethodPost, "/api/v1/admin-auth/login", creds, false)
	if err != nil {
		return core.Identity{}, "", err
	}
	var wire identityWire
	if err := decodeData(op, env, &wire); err != nil {
		return core.Identity{}, "", err
	}
	return wire.normalize(core.RoleStaff), env.Token, nil
}

// AdminMe validates the stored bearer token and returns the identity it
// belongs to. Used by session restore when only a token survived.
func (c *Client) AdminMe(ctx context.Context) (core.Identity, error) {
	const op = "api.AdminMe"
	env, err := c.do(ctx, http.MethodGet, "/api/v1/admin-auth/me", nil, true)
	if err != nil {
		return core.Identity{}, err
	}
	var wire identityWire
	if err := decodeData(op, env, &wire); err != nil {
		return core.Identity{}, err
	}
	return wire.normalize(core.RoleStaff), nil
}

// StudentRegister creates a pending student account. This is the one call
// deliberately issued without the Authorization header. Returns the
// server's message ("OTP sent" or similar).
func (c *Client) StudentRegister(ctx context.Context, req RegisterRequest) (string, error) {
	const op = "api.StudentRegister"
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.RegistrationNo) == "" ||
		strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return "", &core.ClientError{
			Op:      op,
			Kind:    "validation",
			Message: "All registration fields are required.",
			Err:     core.ErrValidation,
		}
	}

	env, err := c.do(ctx, http.MethodPost, "/api/v1/student/register", req, false)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// StudentVerify submits the OTP and, on success, returns the verified
// identity plus the bearer token.
func (c *Client) StudentVerify(ctx context.Context, req VerifyRequest) (core.Identity, string, error) {
	const op = "api.StudentVerify"
	if len(req.OTP) != 6 {
		return core.Identity{}, "", &core.ClientError{
			Op:      op,
			Kind:    "validation",
			Message: "The OTP must be 6 digits.",
			Err:     core.ErrValidation,
		}
	}

	env, err := c.do(ctx, http.MethodPost, "/api/v1/student/verify", req, false)
	if err != nil {
		return core.Identity{}, "", err
	}
	var wire identityWire
	if err := decodeData(op, env, &wire); err != nil {
		return core.Identity{}, "", err
	}
	return wire.normalize(core.RoleStudent), env.Token, nil
}

// StudentLogin authenticates a returning student.
func (c *Client) StudentLogin(ctx context.Context, req StudentLoginRequest) (core.Identity, string, error) {
	const op = "api.StudentLogin"
	if strings.TrimSpace(req.RegistrationNo) == "" || req.Password == "" {
		return core.Identity{}, "", &core.ClientError{
			Op:      op,
			Kind:    "validation",
			Message: "Registration number and password are required.",
			Err:     core.ErrValidation,
		}
	}

	env, err := c.do(ctx, http.MethodPost, "/api/v1/student/login", req, false)
	if err != nil {
		return core.Identity{}, "", err
	}
	var wire identityWire
	if err := decodeData(op, env, &wire); err != nil {
		return core.Identity{}, "", err
	}
	identity := wire.normalize(core.RoleStudent)
	if identity.ID == "" || env.Token == "" {
		return core.Identity{}, "", &core.ClientError{
			Op:      op,
			Kind:    "api",
			Message: "Invalid response from server.",
			Err:     core.ErrServer,
		}
	}
	return identity, env.Token, nil
}

// StudentProfile fetches the authenticated student's profile.
func (c *Client) StudentProfile(ctx context.Context) (core.Identity, error) {
	const op = "api.StudentProfile"
	env, err := c.do(ctx, http.MethodGet, "/api/v1/student/profile", nil, true)
	if err != nil {
		return core.Identity{}, err
	}
	var wire identityWire
	if err := decodeData(op, env, &wire); err != nil {
		return core.Identity{}, err
	}
	return wire.normalize(core.RoleStudent), nil
}
