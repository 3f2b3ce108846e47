// Package plan содержит тарифную политику подписок: допустимые типы планов,
// квоты устройств и расчёт даты окончания.
//
// Каноничный набор планов: daily, weekly, monthly. Квота monthly задана
// большим значением-сентинелом: план практически не ограничивает
// количество устройств, но верхняя граница сохраняется для защиты пула.
package plan

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/device-rental/internal/domain"
)

// Type тип плана подписки.
type Type string

// Допустимые типы планов.
const (
	Daily   Type = "daily"
	Weekly  Type = "weekly"
	Monthly Type = "monthly"
)

// MonthlyDeviceCap сентинел квоты для плана monthly.
const MonthlyDeviceCap = 1000

// Parse проверяет строку и возвращает тип плана.
func Parse(s string) (Type, error) {
	switch Type(s) {
	case Daily, Weekly, Monthly:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown plan type %q: %w", s, domain.ErrUnsupportedValue)
}

// MaxDevices возвращает квоту устройств для типа плана.
func (t Type) MaxDevices() int {
	switch t {
	case Daily:
		return 1
	case Weekly:
		return 3
	case Monthly:
		return MonthlyDeviceCap
	}
	return 0
}

// EndDate возвращает дату окончания подписки, начатой в start.
// Для monthly прибавляется один календарный месяц с прижатием дня
// к последнему дню короткого месяца: 31 января → 28/29 февраля.
func (t Type) EndDate(start time.Time) time.Time {
	switch t {
	case Daily:
		return start.AddDate(0, 0, 1)
	case Weekly:
		return start.AddDate(0, 0, 7)
	case Monthly:
		return addMonthClamped(start)
	}
	return start
}

func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	lastDay := daysIn(month+1, year)
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month+1, day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(month time.Month, year int) int {
	// Нулевой день следующего месяца нормализуется в последний день текущего.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
