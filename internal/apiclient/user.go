package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"interviewcoach/internal/domain"
)

// ProfileUpdate holds the editable account fields.
type ProfileUpdate struct {
	Name            string `json:"name"`
	TargetRole      string `json:"target_role"`
	ExperienceLevel string `json:"experience_level"`
}

func (p ProfileUpdate) validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return domain.NewValidationError("name", "name is required")
	case strings.TrimSpace(p.TargetRole) == "":
		return domain.NewValidationError("target_role", "target role is required")
	case strings.TrimSpace(p.ExperienceLevel) == "":
		return domain.NewValidationError("experience_level", "experience level is required")
	}
	return nil
}

// Resume is an optional PDF attached to a profile update.
type Resume struct {
	Filename string
	Content  io.Reader
}

// UpdateProfile posts the profile form, attaching the resume when given.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate, resume *Resume) (domain.User, error) {
	if err := update.validate(); err != nil {
		return domain.User{}, err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for field, value := range map[string]string{
		"name":             update.Name,
		"target_role":      update.TargetRole,
		"experience_level": update.ExperienceLevel,
	} {
		if err := form.WriteField(field, value); err != nil {
			return domain.User{}, fmt.Errorf("write %s field: %w", field, err)
		}
	}
	if resume != nil && resume.Content != nil {
		if !strings.EqualFold(filepath.Ext(resume.Filename), ".pdf") {
			return domain.User{}, domain.NewValidationError("resume", "only PDF resumes are accepted")
		}
		part, err := form.CreateFormFile("resume", filepath.Base(resume.Filename))
		if err != nil {
			return domain.User{}, fmt.Errorf("attach resume: %w", err)
		}
		if _, err := io.Copy(part, resume.Content); err != nil {
			return domain.User{}, fmt.Errorf("attach resume: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return domain.User{}, fmt.Errorf("close profile form: %w", err)
	}

	var out struct {
		User wireUser `json:"user"`
	}
	if err := c.do(ctx, "profile", http.MethodPost, "/user/profile", &body, form.FormDataContentType(), &out); err != nil {
		return domain.User{}, err
	}
	return out.User.user(), nil
}

// Me returns the signed-in account.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var out wireUser
	if err := c.doJSON(ctx, "me", http.MethodGet, "/user/me", nil, &out); err != nil {
		return domain.User{}, err
	}
	return out.user(), nil
}

// UpdateMe edits the account fields without a resume upload. The server
// echoes only the fields it changed.
func (c *Client) UpdateMe(ctx context.Context, update ProfileUpdate) (ProfileUpdate, error) {
	if err := update.validate(); err != nil {
		return ProfileUpdate{}, err
	}
	var out ProfileUpdate
	if err := c.doJSON(ctx, "update-me", http.MethodPut, "/user/me", update, &out); err != nil {
		return ProfileUpdate{}, err
	}
	return out, nil
}

// ExtractStories turns resume text into reusable STAR stories. Story shape is
// owned by the server and passed through untouched.
func (c *Client) ExtractStories(ctx context.Context, resumeText string) ([]json.RawMessage, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, domain.NewValidationError("resume_text", "resume text is required")
	}
	var out struct {
		Stories []json.RawMessage `json:"stories"`
	}
	if err := c.doJSON(ctx, "resume-extract", http.MethodPost, "/user/resume/extract", map[string]string{"resume_text": resumeText}, &out); err != nil {
		return nil, err
	}
	return out.Stories, nil
}
