package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohhhamed/tebell/internal/store"
	"github.com/mohhhamed/tebell/internal/timetable"
)

func init() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the schedule resolved against the current time",
		Long:  "Resolves the stored schedule against the local clock and prints the current and next lesson.",
		Run:   runStatus,
	}

	RootCmd.AddCommand(cmd)
}

type statusOutput struct {
	Version          uint64      `json:"version"`
	TeacherName      string      `json:"teacher_name,omitempty"`
	SchoolName       string      `json:"school_name,omitempty"`
	Lessons          int         `json:"lessons"`
	Day              string      `json:"day"`
	Time             string      `json:"time"`
	Current          *lessonLine `json:"current,omitempty"`
	Next             *lessonLine `json:"next,omitempty"`
	RemainingMinutes int         `json:"remaining_minutes,omitempty"`
	ProgressPercent  int         `json:"progress_percent,omitempty"`
	MinutesUntilNext int         `json:"minutes_until_next,omitempty"`
}

type lessonLine struct {
	Period    int    `json:"period"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	ClassName string `json:"class_name,omitempty"`
	Subject   string `json:"subject_name,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load configuration", err)
	}
	storage, err := store.Open(cfg.SQLitePath)
	if err != nil {
		exitErr("open storage", err)
	}
	defer storage.Close()

	loaded, err := storage.Load(cmd.Context())
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintln(os.Stderr, "error: no schedule has been imported")
		os.Exit(1)
	}
	if err != nil {
		exitErr("load schedule", err)
	}

	sched, err := timetable.NewSchedule(loaded.Document.LessonInputs(), timetable.BuildOptions{
		Version:     loaded.Version,
		TeacherName: loaded.Document.TeacherName,
		SchoolName:  loaded.Document.SchoolName,
	})
	if err != nil {
		exitErr("rebuild schedule", err)
	}

	now := time.Now().In(cfg.Timezone)
	res := timetable.Resolve(sched, now)

	out := statusOutput{
		Version:          sched.Version(),
		TeacherName:      sched.TeacherName(),
		SchoolName:       sched.SchoolName(),
		Lessons:          sched.Len(),
		Day:              now.Weekday().String(),
		Time:             timetable.TimeOfDayOf(now).String(),
		Current:          toLessonLine(res.Current),
		Next:             toLessonLine(res.Next),
		RemainingMinutes: res.RemainingMinutes,
		ProgressPercent:  res.ProgressPercent,
		MinutesUntilNext: res.MinutesUntilNext,
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		exitErr("encode status", err)
	}
	fmt.Println(string(b))
}

func toLessonLine(l *timetable.Lesson) *lessonLine {
	if l == nil {
		return nil
	}
	return &lessonLine{
		Period:    l.Period,
		StartTime: l.Start.String(),
		EndTime:   l.End.String(),
		ClassName: l.ClassName,
		Subject:   l.SubjectName,
	}
}
