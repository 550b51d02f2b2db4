package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveStatus(t *testing.T) {
	due := dateOnly(testNow)
	b := Borrowing{Status: StatusBorrowed, DueDate: due}

	assert.Equal(t, StatusBorrowed, b.EffectiveStatus(due.Add(23*time.Hour)), "due today is not overdue")
	assert.Equal(t, StatusOverdue, b.EffectiveStatus(due.AddDate(0, 0, 1)))
	assert.Equal(t, 3, b.DaysOverdue(due.AddDate(0, 0, 3)))

	b.Status = StatusReturned
	assert.Equal(t, StatusReturned, b.EffectiveStatus(due.AddDate(0, 0, 30)))
	assert.Zero(t, b.DaysOverdue(due.AddDate(0, 0, 30)))
	assert.True(t, b.Status.IsTerminal())
	assert.False(t, b.IsActive())
}

func TestParseBorrowingStatus(t *testing.T) {
	s, err := ParseBorrowingStatus(" overdue ")
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, s)
	_, err = ParseBorrowingStatus("ON_HOLD")
	assert.Error(t, err)
}

func TestBookCategories(t *testing.T) {
	assert.Len(t, BookCategories, 25)
	assert.Equal(t, "Self Help", CategorySelfHelp.Label())
	assert.Equal(t, "Non Fiction", CategoryNonFiction.Label())

	c, err := ParseBookCategory("non-fiction")
	require.NoError(t, err)
	assert.Equal(t, CategoryNonFiction, c)
	c, err = ParseBookCategory("Self Help")
	require.NoError(t, err)
	assert.Equal(t, CategorySelfHelp, c)
	_, err = ParseBookCategory("pottery")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2026-02-28 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC), d)
	_, err = ParseDate("28/02/2026")
	assert.Error(t, err)
}

func TestPageRequestAndSort(t *testing.T) {
	assert.Equal(t, PageRequest{Page: 0, Size: DefaultPageSize}, PageRequest{Page: -2}.Normalize())
	assert.Equal(t, MaxPageSize, PageRequest{Size: 1000}.Normalize().Size)

	sorts, err := ParseSort("title, desc; isbn")
	require.NoError(t, err)
	assert.Equal(t, []SortCriteria{{Field: "title", Direction: SortDesc}, {Field: "isbn", Direction: SortAsc}}, sorts)
	_, err = ParseSort("title,sideways")
	assert.Error(t, err)

	order, err := bookSorts.orderClause(sorts, "fallback")
	require.NoError(t, err)
	assert.Equal(t, "title DESC, isbn ASC, id ASC", order)
	order, err = bookSorts.orderClause(nil, "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", order)

	p := NewPage([]int{1, 2}, 21, PageRequest{Page: 2, Size: 10})
	assert.Equal(t, 3, p.TotalPages)
	assert.False(t, p.HasNext())
	assert.True(t, p.HasPrevious())
	assert.NotNil(t, NewPage[int](nil, 0, PageRequest{}).Items)
}
