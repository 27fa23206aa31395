package apiclient

import (
	"context"
	"net/url"
)

func (f DoctorForm) values() url.Values {
	q := url.Values{}
	q.Set("name", f.Name)
	q.Set("email", f.Email)
	if f.Password != "" {
		q.Set("password", f.Password)
	}
	q.Set("address", f.Address)
	q.Set("phone", f.Phone)
	q.Set("department", f.Department)
	q.Set("specialization", f.Specialization)
	q.Set("qualification", f.Qualification)
	q.Set("experience", f.Experience)
	q.Set("licence_no", f.LicenceNo)
	q.Set("consultation_fee", f.ConsultationFee)
	q.Set("status", f.Status)
	return q
}

// RegisterDoctor creates a doctor account. Requires an admin session.
func (c *Client) RegisterDoctor(ctx context.Context, form DoctorForm) error {
	tok, err := c.adminToken()
	if err != nil {
		return err
	}
	q := form.values()
	q.Set("admin_token", tok)
	return c.get(ctx, "register_doctor", "/auth/register-doctor", q, nil)
}

// UpdateDoctor edits an existing doctor. An empty password is not sent.
func (c *Client) UpdateDoctor(ctx context.Context, id string, form DoctorForm) error {
	tok, err := c.adminToken()
	if err != nil {
		return err
	}
	q := form.values()
	q.Set("admin_token", tok)
	q.Set("doctor_id", id)
	return c.get(ctx, "update_doctor", "/auth/update-doctor", q, nil)
}

// ListAllDoctors returns the full doctor list visible to admins.
func (c *Client) ListAllDoctors(ctx context.Context) ([]Doctor, error) {
	tok, err := c.adminToken()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("admin_token", tok)
	var out struct {
		Doctors []Doctor `json:"doctors"`
	}
	if err := c.get(ctx, "get_all_doctors", "/auth/get-all-doctors", q, &out); err != nil {
		return nil, err
	}
	return out.Doctors, nil
}

// ListDoctors returns the public doctor directory.
func (c *Client) ListDoctors(ctx context.Context) ([]Doctor, error) {
	var out struct {
		Doctors []Doctor `json:"doctors"`
	}
	if err := c.get(ctx, "doctors", "/doctors", nil, &out); err != nil {
		return nil, err
	}
	return out.Doctors, nil
}

// DeleteDoctor removes a doctor record.
func (c *Client) DeleteDoctor(ctx context.Context, id string) error {
	tok, err := c.adminToken()
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("doctor_id", id)
	q.Set("admin_token", tok)
	return c.get(ctx, "delete_doctor", "/doctors/delete", q, nil)
}
