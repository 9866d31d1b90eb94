package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/inventory"
	"github.com/frahmantamala/equipment-tracker/internal/report"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		deps, err := initializeDependencies(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize dependencies: %w", err)
		}
		defer deps.Close()

		if clearData {
			if err := clearSeedData(deps); err != nil {
				return err
			}
		}
		return seed(ctx, deps)
	},
}

const seedPassword = "password123"

var seedUsers = []user.RegisterDTO{
	{Name: "Ada Admin", Email: "admin@mail.com", Password: seedPassword, Role: string(user.RoleAdmin)},
	{Name: "Morgan Manager", Email: "manager@mail.com", Password: seedPassword, Role: string(user.RoleManager)},
	{Name: "Erin Employee", Email: "employee@mail.com", Password: seedPassword, Role: string(user.RoleEmployee), HasDriversLicense: true},
	{Name: "Gus Guest", Email: "guest@mail.com", Password: seedPassword, Role: string(user.RoleGuest)},
}

var seedItems = []inventory.CreateItemDTO{
	{Name: "Canon EOS R6", SerialNumber: "CN-R6-0001", Description: "Full-frame mirrorless camera", Condition: string(inventory.ConditionExcellent), Value: 2490},
	{Name: "Epson Projector", SerialNumber: "EP-PJ-2231", Description: "Conference room projector", Condition: string(inventory.ConditionGood), Value: 800},
	{Name: "DeWalt Drill", SerialNumber: "DW-DR-0420", Condition: string(inventory.ConditionFair), Value: 180},
	{Name: "Company Van Keys", SerialNumber: "VAN-01", Condition: string(inventory.ConditionGood), Value: 0, DriversLicenseNeeded: true, PermissionNeeded: true},
	{Name: "Tripod", SerialNumber: "TP-0099", Condition: string(inventory.ConditionPoor), Status: string(inventory.StatusDamaged), Value: 120},
}

// clearSeedData empties the relational tables. Items in Firestore or in
// memory are left alone.
func clearSeedData(deps *Dependencies) error {
	for _, table := range []string{"checkout_records", "inventory_items", "reports", "users"} {
		if err := deps.Gorm.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
		deps.Logger.Info("cleared table", "table", table)
	}
	return nil
}

func seed(ctx context.Context, deps *Dependencies) error {
	lg := deps.Logger

	users := make(map[string]*user.User, len(seedUsers))
	for _, dto := range seedUsers {
		u, err := deps.UserService.GetByEmail(ctx, dto.Email)
		if errors.Is(err, internal.ErrUserNotFound) {
			u, err = deps.UserService.Register(ctx, dto)
			if err == nil {
				lg.Info("seeded user", "email", dto.Email, "role", dto.Role)
			}
		}
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", dto.Email, err)
		}
		users[dto.Email] = u
	}

	existing, err := deps.Ledger.ListItems(ctx, inventory.ItemFilter{})
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	if len(existing) > 0 {
		lg.Info("items already present; skipping item seed", "count", len(existing))
		return nil
	}

	items := make([]*inventory.Item, 0, len(seedItems))
	for _, dto := range seedItems {
		item, err := deps.Ledger.CreateItem(ctx, dto)
		if err != nil {
			return fmt.Errorf("failed to seed item %s: %w", dto.Name, err)
		}
		items = append(items, item)
	}
	lg.Info("seeded items", "count", len(items))

	employee := users["employee@mail.com"]
	if _, err := deps.Ledger.CheckOut(ctx, items[0].ID, employee.ID, "Product shoot"); err != nil {
		return fmt.Errorf("failed to seed checkout: %w", err)
	}

	_, err = deps.ReportService.Submit(ctx, employee, report.SubmitReportDTO{
		Title:       "Tripod leg does not lock",
		Description: "The rear leg slides back under load.",
		Category:    string(report.CategoryIssue),
		Priority:    string(report.PriorityHigh),
	})
	if err != nil {
		return fmt.Errorf("failed to seed report: %w", err)
	}

	lg.Info("seed complete", "users", len(users), "items", len(items))
	return nil
}
