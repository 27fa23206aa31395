package apiclient

import (
	"context"
	"net/url"
)

func (c *Client) adminQuery() (url.Values, error) {
	tok, err := c.adminToken()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("admin_token", tok)
	return q, nil
}

// AdminOverview returns headline counts.
func (c *Client) AdminOverview(ctx context.Context) (*Overview, error) {
	q, err := c.adminQuery()
	if err != nil {
		return nil, err
	}
	var out struct {
		Overview Overview `json:"overview"`
	}
	if err := c.get(ctx, "admin_overview", "/admin/overview", q, &out); err != nil {
		return nil, err
	}
	return &out.Overview, nil
}

// AdminPatients lists patients under the signed-in admin.
func (c *Client) AdminPatients(ctx context.Context) ([]Patient, error) {
	q, err := c.adminQuery()
	if err != nil {
		return nil, err
	}
	var out struct {
		Patients []Patient `json:"patients"`
	}
	if err := c.get(ctx, "admin_patients", "/admin/patients", q, &out); err != nil {
		return nil, err
	}
	return out.Patients, nil
}

// AdminBookings lists bookings under the signed-in admin.
func (c *Client) AdminBookings(ctx context.Context) ([]Booking, error) {
	q, err := c.adminQuery()
	if err != nil {
		return nil, err
	}
	var out struct {
		Bookings []Booking `json:"bookings"`
	}
	if err := c.get(ctx, "admin_bookings", "/admin/bookings", q, &out); err != nil {
		return nil, err
	}
	return out.Bookings, nil
}

// AdminAnalytics returns the per-month chart series.
func (c *Client) AdminAnalytics(ctx context.Context) (*Chart, error) {
	q, err := c.adminQuery()
	if err != nil {
		return nil, err
	}
	var out struct {
		Chart Chart `json:"chart"`
	}
	if err := c.get(ctx, "admin_analytics", "/admin/analytics", q, &out); err != nil {
		return nil, err
	}
	return &out.Chart, nil
}
