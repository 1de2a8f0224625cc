package rosterapi

import (
	"encoding/json"
	"strconv"

	"github.com/trezcool/masomo-attendance/core/attendance"
)

// rollNumber accepts both JSON strings and numbers.
type rollNumber string

func (rn *rollNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*rn = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*rn = rollNumber(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*rn = rollNumber(n.String())
	return nil
}

type rosterEntryDTO struct {
	SubjectID       string     `json:"subjectId"`
	RollNumber      rollNumber `json:"rollNumber"`
	Name            string     `json:"name"`
	CommittedStatus string     `json:"committedStatus,omitempty"`
}

func (dto rosterEntryDTO) toEntry() attendance.RosterEntry {
	return attendance.RosterEntry{
		SubjectID:       dto.SubjectID,
		RollNumber:      string(dto.RollNumber),
		Name:            dto.Name,
		CommittedStatus: attendance.Status(dto.CommittedStatus),
	}
}

type commitRecordDTO struct {
	SubjectID string `json:"subjectId"`
	Status    string `json:"status"`
	Remarks   string `json:"remarks,omitempty"`
}

type commitRequestDTO struct {
	Date      string            `json:"date"`
	ClassName string            `json:"className"`
	Section   string            `json:"section"`
	Period    int               `json:"period,omitempty"`
	Records   []commitRecordDTO `json:"records"`
}

func newCommitRequestDTO(req attendance.CommitRequest) commitRequestDTO {
	dto := commitRequestDTO{
		Date:      req.Key.Date,
		ClassName: req.Key.ClassName,
		Section:   req.Key.Section,
		Period:    req.Key.Period,
		Records:   make([]commitRecordDTO, 0, len(req.Records)),
	}
	for _, r := range req.Records {
		dto.Records = append(dto.Records, commitRecordDTO{SubjectID: r.SubjectID, Status: string(r.Status), Remarks: r.Remarks})
	}
	return dto
}

type commitResultDTO struct {
	Success    bool `json:"success"`
	SavedCount int  `json:"savedCount"`
}

type periodDefinitionDTO struct {
	Period      int    `json:"period"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Subject     string `json:"subject,omitempty"`
	TeacherName string `json:"teacherName,omitempty"`
}

type subjectBreakdownDTO struct {
	Subject    string `json:"subject"`
	Attended   int    `json:"attended"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

type subjectPeriodSummaryDTO struct {
	SubjectID       string                `json:"subjectId"`
	TotalPeriods    int                   `json:"totalPeriods"`
	AttendedPeriods int                   `json:"attendedPeriods"`
	SubjectWise     []subjectBreakdownDTO `json:"subjectWise"`
}

type periodRecordDTO struct {
	SubjectID string `json:"subjectId"`
	Date      string `json:"date"`
	Period    int    `json:"period"`
	Subject   string `json:"subject"`
	Status    string `json:"status"`
}

func classParams(class attendance.ClassRef) map[string]string {
	return map[string]string{"className": class.ClassName, "section": class.Section}
}

func keyParams(key attendance.SelectionKey) map[string]string {
	params := map[string]string{"date": key.Date, "className": key.ClassName, "section": key.Section}
	if key.IsPeriod() {
		params["period"] = strconv.Itoa(key.Period)
	}
	return params
}
