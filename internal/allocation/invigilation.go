package allocation

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
)

// DutyStatusAutoAssigned marks duties produced by the allocator rather than by hand.
const DutyStatusAutoAssigned = "AUTO_ASSIGNED"

// ExamSlot is one room hosting one exam, owned by a department.
type ExamSlot struct {
	ExamID       string `json:"examId" mapstructure:"examId"`
	RoomID       string `json:"roomId" mapstructure:"roomId"`
	RoomNumber   string `json:"roomNumber" mapstructure:"roomNumber"`
	DepartmentID string `json:"departmentId" mapstructure:"departmentId"`
}

// Invigilator is a faculty member eligible for exam duty.
type Invigilator struct {
	FacultyID         string `json:"facultyId" mapstructure:"facultyId"`
	Name              string `json:"name" mapstructure:"name"`
	DepartmentID      string `json:"departmentId" mapstructure:"departmentId"`
	InvigilationCount int    `json:"invigilationCount" mapstructure:"invigilationCount"`
	Active            bool   `json:"isActive" mapstructure:"isActive"`
}

// DutyAssignment staffs one exam room with a primary and an optional backup.
type DutyAssignment struct {
	ExamID       string `json:"examId"`
	RoomID       string `json:"roomId"`
	DepartmentID string `json:"departmentId"`
	PrimaryID    string `json:"primaryId"`
	BackupID     string `json:"backupId,omitempty"`
	Status       string `json:"status"`
}

// InvigilationInput describes one allocation run. Excluded holds faculty already on duty
// for this exam from earlier runs; Unavailable holds faculty who cannot serve at all, such
// as those on leave on the exam date.
type InvigilationInput struct {
	Slots       []ExamSlot    `json:"examSlots" mapstructure:"examSlots"`
	Faculty     []Invigilator `json:"faculty" mapstructure:"faculty"`
	Excluded    []string      `json:"excluded" mapstructure:"excluded"`
	Unavailable []string      `json:"unavailable" mapstructure:"unavailable"`
}

// InvigilationResult lists the duties made and a reason for every room left unstaffed.
type InvigilationResult struct {
	Assignments []DutyAssignment `json:"assignments"`
	Unassigned  []string         `json:"unassigned"`
}

// AssignedIDs lists every faculty id given a duty in the run, primaries first per room.
func (r InvigilationResult) AssignedIDs() []string {
	ids := make([]string, 0, len(r.Assignments)*2)
	for _, a := range r.Assignments {
		ids = append(ids, a.PrimaryID)
		if a.BackupID != "" {
			ids = append(ids, a.BackupID)
		}
	}
	return ids
}

func (in InvigilationInput) validate() error {
	if len(in.Slots) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one exam room is required")
	}
	if len(in.Faculty) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "faculty pool is empty")
	}
	for _, slot := range in.Slots {
		if slot.ExamID == "" || slot.RoomID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "exam rooms need an exam id and a room id")
		}
	}
	return nil
}

// AllocateInvigilators staffs each exam room from active faculty of the room's department,
// least-duty first. Nobody receives two rooms in one run. Overlap with other exams held at
// the same time is not checked here.
func AllocateInvigilators(in InvigilationInput) (InvigilationResult, error) {
	if err := in.validate(); err != nil {
		return InvigilationResult{}, err
	}

	used := make(map[string]struct{})
	for _, id := range lo.Uniq(append(append([]string{}, in.Excluded...), in.Unavailable...)) {
		used[id] = struct{}{}
	}

	result := InvigilationResult{Assignments: make([]DutyAssignment, 0), Unassigned: make([]string, 0)}
	for _, slot := range in.Slots {
		eligible := lo.Filter(in.Faculty, func(f Invigilator, _ int) bool {
			if !f.Active || f.DepartmentID != slot.DepartmentID {
				return false
			}
			_, taken := used[f.FacultyID]
			return !taken
		})
		if len(eligible) == 0 {
			room := slot.RoomNumber
			if room == "" {
				room = slot.RoomID
			}
			result.Unassigned = append(result.Unassigned,
				fmt.Sprintf("room %s for exam %s: no available faculty in department %s", room, slot.ExamID, slot.DepartmentID))
			continue
		}
		sort.SliceStable(eligible, func(i, j int) bool {
			return eligible[i].InvigilationCount < eligible[j].InvigilationCount
		})

		duty := DutyAssignment{
			ExamID:       slot.ExamID,
			RoomID:       slot.RoomID,
			DepartmentID: slot.DepartmentID,
			PrimaryID:    eligible[0].FacultyID,
			Status:       DutyStatusAutoAssigned,
		}
		used[duty.PrimaryID] = struct{}{}
		if len(eligible) > 1 {
			duty.BackupID = eligible[1].FacultyID
			used[duty.BackupID] = struct{}{}
		}
		result.Assignments = append(result.Assignments, duty)
	}
	return result, nil
}
