package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/intake"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

type fixedToken string

func (f fixedToken) Token() string { return string(f) }

func offlineSubmitter() *intake.Submitter {
	return intake.NewSubmitter(offlineAPI{}, offlineAPI{}, fixedToken(""), intake.NewHeuristic(3), nil, logging.New("error"))
}

func TestRunPatientOffline(t *testing.T) {
	in := strings.NewReader(strings.Repeat("none\n", 7))
	var out bytes.Buffer

	err := run(context.Background(), in, &out, apiclient.User{Name: "Ann", Role: "patient"}, offlineSubmitter())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "What is your main health concern")
	assert.Contains(t, text, "Assessment:")
	assert.Contains(t, text, "was not saved")
}

func TestRunQuitEarly(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), strings.NewReader("headache\n/quit\n"), &out, apiclient.User{Role: "patient"}, offlineSubmitter())
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Assessment:")
}

func TestRunClinicianWithAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labs.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	in := strings.NewReader("chest pain\nno allergies\n/attach " + path + "\n/attach /does/not/exist\nanalyze\n")
	var out bytes.Buffer
	err := run(context.Background(), in, &out, apiclient.User{Name: "Dr. Ray", Role: "doctor"}, offlineSubmitter())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "File received (labs.pdf)")
	assert.Contains(t, text, "error>")
	assert.Contains(t, text, "Assessment:")
	assert.Contains(t, text, "labs.pdf")
}
