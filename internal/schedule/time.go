package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyTime возвращается для пустой строки времени
var ErrEmptyTime = errors.New("empty time string")

// TimeOfDay хранит время суток в секундах от полуночи.
// Данные из таблицы приводятся к этому типу один раз на границе загрузки,
// дальше вся логика работает с типизированным значением.
type TimeOfDay int

// ParseTimeOfDay разбирает время из таблицы или пользовательского ввода.
// Допускается отсутствие секунд ("9:30") и незаполненный ноль в часах,
// минуты и секунды обязаны быть двузначными ("8:0" не проходит).
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrEmptyTime
	}

	// Только часы и минуты - дописываем секунды
	if strings.Count(s, ":") == 1 {
		s += ":00"
	}

	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", raw, err)
	}

	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
}

// String отдает каноничный вид HH:MM:SS с ведущими нулями
func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// Short отдает вид HH:MM для клавиатур и расписаний
func (t TimeOfDay) Short() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d", s/3600, s/60%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// NormalizeTime приводит строку времени к каноничному HH:MM:SS
func NormalizeTime(raw string) (string, error) {
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// NormalizeDate приводит строку даты к сравнимому ключу:
// обрезает пробелы и заменяет "/" на "-". Таблица исторически
// содержит оба разделителя.
func NormalizeDate(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), "/", "-")
}

// ParseDate разбирает дату из таблицы с учетом смешанных разделителей
func ParseDate(raw string) (time.Time, error) {
	s := NormalizeDate(raw)
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return d, nil
}

// DateKey возвращает каноничный ключ даты YYYY-MM-DD
func DateKey(d time.Time) string {
	return d.Format("2006-01-02")
}

// Overlaps проверяет пересечение полуинтервалов [s1,e1) и [s2,e2).
// Бронирования "встык" (конец одного равен началу другого) не пересекаются.
func Overlaps(s1, e1, s2, e2 TimeOfDay) bool {
	return s1 < e2 && e1 > s2
}

// TimeOptions генерирует сетку времени для клавиатуры выбора слота
func TimeOptions(dayStart, dayEnd TimeOfDay, step time.Duration) []TimeOfDay {
	if step <= 0 {
		step = 30 * time.Minute
	}
	stepSec := TimeOfDay(step / time.Second)

	var opts []TimeOfDay
	for t := dayStart; t <= dayEnd; t += stepSec {
		opts = append(opts, t)
	}
	return opts
}
