package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/salescube-io/salescube/internal/warehouse"
)

var monthNames = [13]string{
	"", "January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// PopulateDimDate fills the date dimension for every calendar day from
// the start of startYear through the end of endYear. Existing date keys
// are left untouched, so repeated loads are safe.
func PopulateDimDate(ctx context.Context, conn *warehouse.Connection, startYear, endYear int) (int, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("populate DimDate: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO DimDate
		(DateKey, FullDate, Year, Quarter, Month, Day, DayOfWeek, MonthName, QuarterName)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (DateKey) DO NOTHING
	`)
	if err != nil {
		_ = tx.Rollback()

		return 0, fmt.Errorf("populate DimDate: %w", err)
	}

	inserted := 0
	day := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC)

	for day.Year() <= endYear {
		quarter := (int(day.Month())-1)/3 + 1

		// ISO weekday: Monday=1 .. Sunday=7.
		weekday := int(day.Weekday())
		if weekday == 0 {
			weekday = 7
		}

		_, err := stmt.ExecContext(ctx,
			warehouse.DateKeyFor(day),
			day.Format("2006-01-02"),
			day.Year(),
			quarter,
			int(day.Month()),
			day.Day(),
			weekday,
			monthNames[day.Month()],
			fmt.Sprintf("Q%d", quarter),
		)
		if err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()

			return 0, fmt.Errorf("populate DimDate: %w", err)
		}

		inserted++
		day = day.AddDate(0, 0, 1)
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()

		return 0, fmt.Errorf("populate DimDate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("populate DimDate: %w", err)
	}

	return inserted, nil
}
