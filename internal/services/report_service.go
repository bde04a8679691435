package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/j-greybard/arcadetracker/internal/repositories"
)

// MachineRevenue is one machine's share of a revenue report.
type MachineRevenue struct {
	MachineID   int64   `json:"machine_id"`
	MachineName string  `json:"machine_name"`
	Plays       int64   `json:"plays"`
	Revenue     float64 `json:"revenue"`
}

// DailyRevenue is one day's aggregate across all counted machines.
type DailyRevenue struct {
	Date    string  `json:"date"`
	Plays   int64   `json:"plays"`
	Revenue float64 `json:"revenue"`
}

// RevenueReport summarizes derived plays and revenue over a trailing window.
// Only floor machines with a working counter are counted.
type RevenueReport struct {
	PeriodDays   int              `json:"period_days"`
	StartDate    string           `json:"start_date"`
	TotalPlays   int64            `json:"total_plays"`
	TotalRevenue float64          `json:"total_revenue"`
	TopMachines  []MachineRevenue `json:"top_machines"`
	Daily        []DailyRevenue   `json:"daily"`
}

// MachineRepairCost is one machine's share of a repair cost report.
type MachineRepairCost struct {
	MachineID   int64   `json:"machine_id"`
	MachineName string  `json:"machine_name"`
	OrderCount  int     `json:"order_count"`
	TotalCost   float64 `json:"total_cost"`
}

// RepairCostReport summarizes repair spend over a trailing window.
type RepairCostReport struct {
	PeriodDays int                 `json:"period_days"`
	StartDate  string              `json:"start_date"`
	OrderCount int                 `json:"order_count"`
	OpenCount  int                 `json:"open_count"`
	FixedCount int                 `json:"fixed_count"`
	TotalCost  float64             `json:"total_cost"`
	ByMachine  []MachineRepairCost `json:"by_machine"`
}

// ReportService produces read-only aggregates over the two ledgers.
type ReportService interface {
	RevenueReport(days int) (*RevenueReport, error)
	RepairCostReport(days int) (*RepairCostReport, error)
}

type reportService struct {
	machineRepo repositories.MachineRepository
	repairRepo  repositories.RepairRepository
}

// NewReportService creates a new instance of ReportService.
func NewReportService(mr repositories.MachineRepository, rr repositories.RepairRepository) ReportService {
	return &reportService{machineRepo: mr, repairRepo: rr}
}

// RevenueReport aggregates reading deltas over the trailing window. Baseline
// readings contribute zero deltas, so they never inflate the totals.
func (s *reportService) RevenueReport(days int) (*RevenueReport, error) {
	if days < 1 {
		days = 30
	}
	start := time.Now().AddDate(0, 0, -days)

	readings, err := s.machineRepo.GetReadingsSince(start)
	if err != nil {
		return nil, fmt.Errorf("failed to load readings for revenue report: %w", err)
	}

	report := &RevenueReport{
		PeriodDays:  days,
		StartDate:   start.Format("2006-01-02"),
		TopMachines: []MachineRevenue{},
		Daily:       []DailyRevenue{},
	}

	perMachine := map[int64]*MachineRevenue{}
	perDay := map[string]*DailyRevenue{}

	for i := range readings {
		reading := &readings[i]
		machine := reading.Machine
		if machine == nil || machine.Location != LocationFloor || machine.CounterStatus != CounterStatusWorking {
			continue
		}

		report.TotalPlays += reading.PlaysDelta
		report.TotalRevenue += reading.RevenueDelta

		mr, ok := perMachine[reading.MachineID]
		if !ok {
			mr = &MachineRevenue{MachineID: reading.MachineID, MachineName: machine.Name}
			perMachine[reading.MachineID] = mr
		}
		mr.Plays += reading.PlaysDelta
		mr.Revenue += reading.RevenueDelta

		day := reading.RecordedDate.Format("2006-01-02")
		dr, ok := perDay[day]
		if !ok {
			dr = &DailyRevenue{Date: day}
			perDay[day] = dr
		}
		dr.Plays += reading.PlaysDelta
		dr.Revenue += reading.RevenueDelta
	}

	for _, mr := range perMachine {
		report.TopMachines = append(report.TopMachines, *mr)
	}
	sort.Slice(report.TopMachines, func(i, j int) bool {
		if report.TopMachines[i].Revenue != report.TopMachines[j].Revenue {
			return report.TopMachines[i].Revenue > report.TopMachines[j].Revenue
		}
		return report.TopMachines[i].MachineName < report.TopMachines[j].MachineName
	})
	if len(report.TopMachines) > 10 {
		report.TopMachines = report.TopMachines[:10]
	}

	for _, dr := range perDay {
		report.Daily = append(report.Daily, *dr)
	}
	sort.Slice(report.Daily, func(i, j int) bool {
		return report.Daily[i].Date < report.Daily[j].Date
	})

	return report, nil
}

func (s *reportService) RepairCostReport(days int) (*RepairCostReport, error) {
	if days < 1 {
		days = 30
	}
	start := time.Now().AddDate(0, 0, -days)

	orders, err := s.repairRepo.GetOrdersSince(start)
	if err != nil {
		return nil, fmt.Errorf("failed to load repair orders for cost report: %w", err)
	}

	report := &RepairCostReport{
		PeriodDays: days,
		StartDate:  start.Format("2006-01-02"),
		ByMachine:  []MachineRepairCost{},
	}

	perMachine := map[int64]*MachineRepairCost{}
	for i := range orders {
		order := &orders[i]
		report.OrderCount++
		report.TotalCost += order.TotalCost
		switch order.Status {
		case RepairStatusOpen, RepairStatusInProgress:
			report.OpenCount++
		case RepairStatusFixed:
			report.FixedCount++
		}

		mc, ok := perMachine[order.MachineID]
		if !ok {
			name := ""
			if order.Machine != nil {
				name = order.Machine.Name
			}
			mc = &MachineRepairCost{MachineID: order.MachineID, MachineName: name}
			perMachine[order.MachineID] = mc
		}
		mc.OrderCount++
		mc.TotalCost += order.TotalCost
	}

	for _, mc := range perMachine {
		report.ByMachine = append(report.ByMachine, *mc)
	}
	sort.Slice(report.ByMachine, func(i, j int) bool {
		if report.ByMachine[i].TotalCost != report.ByMachine[j].TotalCost {
			return report.ByMachine[i].TotalCost > report.ByMachine[j].TotalCost
		}
		return report.ByMachine[i].MachineName < report.ByMachine[j].MachineName
	})

	return report, nil
}
