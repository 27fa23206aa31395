package apiclient

import (
	"context"
	"net/url"
)

// ListBookings lists bookings, optionally narrowed server-side to one doctor.
func (c *Client) ListBookings(ctx context.Context, doctorName string) ([]Booking, error) {
	var q url.Values
	if doctorName != "" {
		q = url.Values{}
		q.Set("doctor_name", doctorName)
	}
	var out struct {
		Bookings []Booking `json:"bookings"`
	}
	if err := c.get(ctx, "bookings", "/bookings", q, &out); err != nil {
		return nil, err
	}
	return out.Bookings, nil
}

// CreateBooking requests an appointment and returns the new booking id.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (string, error) {
	q := url.Values{}
	q.Set("patient_name", req.PatientName)
	q.Set("doctor_name", req.DoctorName)
	q.Set("department", req.Department)
	q.Set("date", req.Date)
	q.Set("time", req.Time)
	var out struct {
		BookingID Text `json:"booking_id"`
	}
	if err := c.get(ctx, "create_booking", "/bookings/create", q, &out); err != nil {
		return "", err
	}
	return out.BookingID.String(), nil
}

// UpdateBookingStatus sets a booking's status.
func (c *Client) UpdateBookingStatus(ctx context.Context, id, status string) error {
	q := url.Values{}
	q.Set("booking_id", id)
	q.Set("status", status)
	return c.get(ctx, "update_booking_status", "/bookings/update-status", q, nil)
}

// UpdateAppointment moves a booking to a new date (YYYY-MM-DD) and time (HH:MM).
func (c *Client) UpdateAppointment(ctx context.Context, id, date, clock string) error {
	q := url.Values{}
	q.Set("booking_id", id)
	q.Set("date", date)
	q.Set("time", clock)
	return c.get(ctx, "update_appointment", "/bookings/update-appointment", q, nil)
}

// DeleteBooking removes a booking.
func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("booking_id", id)
	return c.get(ctx, "delete_booking", "/bookings/delete", q, nil)
}
