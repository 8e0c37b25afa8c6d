package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"shiftcal/internal/app"
	"shiftcal/internal/calendar"
	"shiftcal/internal/engine"
)

func main() {
	var (
		cfgPath string
		from    string
		days    int
		team    string
		serve   bool
	)
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config file (json or yaml)")
	flag.StringVar(&from, "from", "", "first date to print (YYYY-MM-DD, default today)")
	flag.IntVar(&days, "days", 1, "number of days to print")
	flag.StringVar(&team, "team", "", "only print this team's schedule")
	flag.BoolVar(&serve, "serve", false, "keep running after printing (config hot reload + prefetch)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.NewApp(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	start := calendar.DateOf(time.Now())
	if strings.TrimSpace(from) != "" {
		start, err = calendar.ParseDate(from)
		if err != nil {
			fmt.Println("fatal:", err)
			os.Exit(1)
		}
	}
	if days < 1 {
		days = 1
	}

	if err := render(a.Engine(), start, days, strings.TrimSpace(team)); err != nil {
		fmt.Println("fatal:", err)
		_ = a.Stop(context.Background())
		os.Exit(1)
	}

	if serve {
		<-ctx.Done()
	}
	_ = a.Stop(context.Background())
}

func render(eng *engine.Engine, start calendar.Date, days int, teamID string) error {
	if teamID != "" {
		return renderTeam(eng, start, days, teamID)
	}

	daysByDate, err := eng.ScheduleForRange(start, start.AddDays(days-1))
	if err != nil {
		return err
	}
	dates := make([]calendar.Date, 0, len(daysByDate))
	for d := range daysByDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, d := range dates {
		day := daysByDate[d]
		fmt.Println(d.String())
		for _, s := range day.Shifts {
			names := make([]string, 0, len(s.Teams))
			for _, t := range s.Teams {
				names = append(names, t.Name())
			}
			fmt.Printf("  %-8s %s-%s  %s\n", s.Type.ID,
				s.Type.StartTime, s.Type.EndTime(), strings.Join(names, ", "))
		}
		if len(day.Resting) > 0 {
			names := make([]string, 0, len(day.Resting))
			for _, t := range day.Resting {
				names = append(names, t.Name())
			}
			fmt.Printf("  %-8s %s\n", "resting", strings.Join(names, ", "))
		}
	}
	return nil
}

func renderTeam(eng *engine.Engine, start calendar.Date, days int, teamID string) error {
	for i := 0; i < days; i++ {
		d := start.AddDays(i)
		td, err := eng.ScheduleForTeam(d, teamID)
		if err != nil {
			return err
		}
		if td.Resting {
			fmt.Printf("%s  %-10s resting\n", d.String(), td.Team.Name())
			continue
		}
		fmt.Printf("%s  %-10s %s %s-%s\n", d.String(), td.Team.Name(),
			td.Shift.Type.ID, td.Shift.Type.StartTime, td.Shift.Type.EndTime())
	}
	return nil
}
