package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSeatingWritesCSV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "seats.csv")
	var stdout bytes.Buffer

	err := run([]string{"-mode", "seating", "-in", "testdata/seating.json", "-out", out}, &stdout)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "seated 3 of 4 students in 2 rooms")
	assert.Contains(t, stdout.String(), "unallocated: CS04")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	csv := string(data)
	assert.Contains(t, csv, "Room,Seat,Row,Column,Roll Number,Name")
	assert.Contains(t, csv, "H1,H1-01,1,1,CS01,Arun")
	assert.Contains(t, csv, "H2,H2-01,1,1,CS03,Chen")
	assert.NotContains(t, csv, "CS04")
}

func TestRunSubstituteDecodesDates(t *testing.T) {
	var stdout bytes.Buffer

	err := run([]string{"-mode", "substitute", "-in", "testdata/substitute.json"}, &stdout)
	require.NoError(t, err)
	assert.Equal(t, "substitute: Ravi (f-3), 0 classes that day\n", stdout.String())
}

func TestRunTimetable(t *testing.T) {
	out := filepath.Join(t.TempDir(), "timetable.csv")
	var stdout bytes.Buffer

	err := run([]string{"-mode", "timetable", "-in", "testdata/timetable.json", "-out", out}, &stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "placed 5 periods")
	assert.NotContains(t, stdout.String(), "conflict")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Day,Start,End,Subject,Faculty,Room,Kind")
}

func TestRunRejectsBadArguments(t *testing.T) {
	var stdout bytes.Buffer
	assert.Error(t, run([]string{"-mode", "seating"}, &stdout))
	assert.Error(t, run([]string{"-mode", "lottery", "-in", "testdata/seating.json"}, &stdout))
	assert.Error(t, run([]string{"-mode", "seating", "-in", "testdata/missing.json"}, &stdout))
}
