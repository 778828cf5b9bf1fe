package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/resource-allocator/internal/allocation"
)

const usage = "allocator-cli -mode timetable|priority|seating|invigilation|substitute -in batch.json [-out result.csv]"

// substituteBatch is the file layout of -mode substitute.
type substituteBatch struct {
	Query     allocation.SubstituteQuery `mapstructure:"query"`
	Faculty   []allocation.Candidate     `mapstructure:"faculty"`
	Timetable []allocation.Placement     `mapstructure:"timetable"`
	Leaves    []allocation.LeaveWindow   `mapstructure:"leaves"`
}

type placementRow struct {
	Day       string `csv:"Day"`
	StartTime string `csv:"Start"`
	EndTime   string `csv:"End"`
	SubjectID string `csv:"Subject"`
	FacultyID string `csv:"Faculty"`
	RoomID    string `csv:"Room"`
	Kind      string `csv:"Kind"`
}

type seatRow struct {
	Room       string `csv:"Room"`
	SeatNumber string `csv:"Seat"`
	Row        int    `csv:"Row"`
	Col        int    `csv:"Column"`
	RollNumber string `csv:"Roll Number"`
	Name       string `csv:"Name"`
}

type dutyRow struct {
	ExamID    string `csv:"Exam"`
	RoomID    string `csv:"Room"`
	PrimaryID string `csv:"Primary"`
	BackupID  string `csv:"Backup"`
	Status    string `csv:"Status"`
}

type candidateRow struct {
	FacultyID string `csv:"Faculty"`
	Name      string `csv:"Name"`
	DayLoad   int    `csv:"Classes That Day"`
}

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal("allocation failed", zap.Error(err))
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("allocator-cli", flag.ContinueOnError)
	mode := fs.String("mode", "", "timetable, priority, seating, invigilation or substitute")
	in := fs.String("in", "", "JSON batch file")
	out := fs.String("out", "", "optional CSV output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mode == "" || *in == "" {
		return fmt.Errorf("usage: %s", usage)
	}

	raw, err := readBatch(*in)
	if err != nil {
		return err
	}

	var rows interface{}
	switch *mode {
	case "timetable":
		var input allocation.TimetableInput
		if err := decode(raw, &input); err != nil {
			return err
		}
		result, err := allocation.GenerateTimetable(input)
		if err != nil {
			return err
		}
		printTimetable(stdout, result)
		rows = placementRows(result.Placements)
	case "priority":
		var input allocation.PriorityInput
		if err := decode(raw, &input); err != nil {
			return err
		}
		result, err := allocation.GeneratePriorityTimetable(input)
		if err != nil {
			return err
		}
		printTimetable(stdout, result.TimetableResult)
		for _, entry := range result.Report {
			fmt.Fprintf(stdout, "  %-12s coverage %5.1f%%  %d -> %d h  %s\n", entry.SubjectName, entry.Coverage, entry.BaseHours, entry.ScheduledHours, entry.Priority)
		}
		rows = placementRows(result.Placements)
	case "seating":
		var input allocation.SeatingInput
		if err := decode(raw, &input); err != nil {
			return err
		}
		result, err := allocation.AllocateSeating(input)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "seated %d of %d students in %d rooms\n", result.SeatedCount(), len(input.Students), len(result.Allocations))
		if len(result.Unallocated) > 0 {
			fmt.Fprintf(stdout, "unallocated: %s\n", strings.Join(result.Unallocated, ", "))
		}
		rows = seatRows(result.Allocations)
	case "invigilation":
		var input allocation.InvigilationInput
		if err := decode(raw, &input); err != nil {
			return err
		}
		result, err := allocation.AllocateInvigilators(input)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "staffed %d of %d rooms\n", len(result.Assignments), len(input.Slots))
		for _, reason := range result.Unassigned {
			fmt.Fprintf(stdout, "  unassigned: %s\n", reason)
		}
		rows = lo.Map(result.Assignments, func(a allocation.DutyAssignment, _ int) dutyRow {
			return dutyRow{ExamID: a.ExamID, RoomID: a.RoomID, PrimaryID: a.PrimaryID, BackupID: a.BackupID, Status: a.Status}
		})
	case "substitute":
		var batch substituteBatch
		if err := decode(raw, &batch); err != nil {
			return err
		}
		ranked, err := allocation.RankSubstitutes(batch.Query, batch.Faculty, batch.Timetable, batch.Leaves)
		if err != nil {
			return err
		}
		if len(ranked) == 0 {
			fmt.Fprintln(stdout, "no substitute available")
		} else {
			fmt.Fprintf(stdout, "substitute: %s (%s), %d classes that day\n", ranked[0].Name, ranked[0].FacultyID, ranked[0].DayLoad)
		}
		rows = lo.Map(ranked, func(c allocation.ScoredCandidate, _ int) candidateRow {
			return candidateRow{FacultyID: c.FacultyID, Name: c.Name, DayLoad: c.DayLoad}
		})
	default:
		return fmt.Errorf("unknown mode %q; usage: %s", *mode, usage)
	}

	if *out == "" {
		return nil
	}
	return writeCSV(*out, rows)
}

func readBatch(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse batch: %w", err)
	}
	return raw, nil
}

// decode maps the loosely typed batch onto allocation inputs; dates use the YYYY-MM-DD form.
func decode(raw map[string]interface{}, dest interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(allocation.DateLayout),
		WeaklyTypedInput: true,
		Result:           dest,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("decode batch: %w", err)
	}
	return nil
}

func printTimetable(w io.Writer, result allocation.TimetableResult) {
	fmt.Fprintf(w, "placed %d periods\n", len(result.Placements))
	for _, message := range result.ConflictMessages() {
		fmt.Fprintf(w, "  conflict: %s\n", message)
	}
}

func placementRows(placements []allocation.Placement) []placementRow {
	return lo.Map(placements, func(p allocation.Placement, _ int) placementRow {
		return placementRow{Day: p.Day, StartTime: p.StartTime, EndTime: p.EndTime, SubjectID: p.SubjectID, FacultyID: p.FacultyID, RoomID: p.RoomID, Kind: string(p.Kind)}
	})
}

func seatRows(rooms []allocation.RoomSeating) []seatRow {
	rows := make([]seatRow, 0)
	for _, room := range rooms {
		for _, seat := range room.Seats {
			rows = append(rows, seatRow{Room: room.RoomNumber, SeatNumber: seat.SeatNumber, Row: seat.Row, Col: seat.Col, RollNumber: seat.RollNumber, Name: seat.Name})
		}
	}
	return rows
}

func writeCSV(path string, rows interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer file.Close()
	if err := gocsv.MarshalFile(rows, file); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
