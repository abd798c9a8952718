package core

import "testing"

func task(client string, category Category, managers []string, hours Hours, price int64, date Date) Task {
	return Task{
		ClientName: client,
		Category:   category,
		Managers:   managers,
		Hours:      hours,
		Price:      Money{Won: price},
		TaskDate:   date,
	}
}

func bucketFor(t *testing.T, buckets []Bucket, key string) Bucket {
	t.Helper()
	for _, b := range buckets {
		if b.Key == key {
			return b
		}
	}
	t.Fatalf("no bucket for key %q", key)
	return Bucket{}
}

func TestSummarizeTasks_ByManagerEvenSplit(t *testing.T) {
	tasks := []Task{
		task("acme", CategoryDesign, []string{"A", "B"}, 800, 100000, NewDate(2026, 8, 3)),
	}

	got := SummarizeTasks(tasks, ByManager)
	if len(got) != 2 {
		t.Fatalf("bucket count = %d, want 2", len(got))
	}
	for _, m := range []string{"A", "B"} {
		b := bucketFor(t, got, m)
		if b.Price.Won != 50000 {
			t.Errorf("manager %s price = %d, want 50000", m, b.Price.Won)
		}
		if b.Hours != 400 {
			t.Errorf("manager %s hours = %d, want 400", m, b.Hours)
		}
	}
}

func TestSummarizeTasks_ManagerSplitReconciles(t *testing.T) {
	tasks := []Task{
		task("acme", CategoryDesign, []string{"A", "B", "C"}, 100, 100000, NewDate(2026, 8, 3)),
		task("acme", CategoryDevelopment, []string{"B"}, 800, 250001, NewDate(2026, 8, 4)),
		task("zed", CategoryOperation, nil, 50, 77777, NewDate(2026, 8, 5)),
	}

	got := SummarizeTasks(tasks, ByManager)

	var taskTotal, bucketTotal int64
	for _, task := range tasks {
		taskTotal += task.Price.Won
	}
	for _, b := range got {
		bucketTotal += b.Price.Won
	}
	if bucketTotal != taskTotal {
		t.Errorf("credited total = %d, want %d", bucketTotal, taskTotal)
	}

	// The first listed manager takes the division remainder.
	if a := bucketFor(t, got, "A"); a.Price.Won != 33334 {
		t.Errorf("manager A price = %d, want 33334", a.Price.Won)
	}
	if b := bucketFor(t, got, "B"); b.Price.Won != 33333+250001 {
		t.Errorf("manager B price = %d, want %d", b.Price.Won, 33333+250001)
	}
	if u := bucketFor(t, got, UnassignedManager); u.Price.Won != 77777 {
		t.Errorf("unassigned price = %d, want 77777", u.Price.Won)
	}
}

func TestSummarizeTasks_ByClientAndCategory(t *testing.T) {
	tasks := []Task{
		task("acme", CategoryDesign, nil, 100, 1000, NewDate(2026, 7, 1)),
		task("acme", CategoryDevelopment, nil, 200, 2000, NewDate(2026, 7, 2)),
		task("zed", CategoryDesign, nil, 300, 3000, NewDate(2026, 8, 3)),
	}

	byClient := SummarizeTasks(tasks, ByClient)
	if b := bucketFor(t, byClient, "acme"); b.Count != 2 || b.Price.Won != 3000 || b.Hours != 300 {
		t.Errorf("acme bucket = %+v, want count 2, price 3000, hours 300", b)
	}

	byCategory := SummarizeTasks(tasks, ByCategory)
	if b := bucketFor(t, byCategory, "design"); b.Count != 2 || b.Price.Won != 4000 {
		t.Errorf("design bucket = %+v, want count 2, price 4000", b)
	}

	byMonth := SummarizeTasks(tasks, ByMonth)
	if b := bucketFor(t, byMonth, "2026-07"); b.Count != 2 || b.Price.Won != 3000 {
		t.Errorf("2026-07 bucket = %+v, want count 2, price 3000", b)
	}
}

func TestSummarizeLedger(t *testing.T) {
	entries := []LedgerEntry{
		{
			Date: NewDate(2026, 8, 1), Kind: KindMeal,
			Amounts: []UserAmount{{User: "A", Amount: Money{Won: -9000}}, {User: "B", Amount: Money{Won: 4500}}, {User: "C", Amount: Money{Won: 4500}}},
		},
		{
			Date: NewDate(2026, 8, 15), Kind: KindMeal,
			Amounts: []UserAmount{{User: "A", Amount: Money{Won: 3000}}, {User: "B", Amount: Money{Won: 3000}}},
		},
		{
			Date: NewDate(2026, 9, 1), Kind: KindRecurring,
			Amounts: []UserAmount{{User: "C", Amount: Money{Won: 12000}}},
		},
	}

	byKind := SummarizeLedger(entries, LedgerByKind)
	for _, b := range byKind {
		switch b.Key {
		case KindMeal:
			if b.Count != 2 || b.Total.Won != 6000 {
				t.Errorf("meal bucket = %+v, want count 2, total 6000", b)
			}
		case KindRecurring:
			if b.Count != 1 || b.Total.Won != 12000 {
				t.Errorf("recurring bucket = %+v, want count 1, total 12000", b)
			}
		}
	}

	byUser := SummarizeLedger(entries, LedgerByUser)
	for _, b := range byUser {
		var want int64
		switch b.Key {
		case "A":
			want = -6000
		case "B":
			want = 7500
		case "C":
			want = 16500
		}
		if b.Total.Won != want {
			t.Errorf("user %s total = %d, want %d", b.Key, b.Total.Won, want)
		}
	}

	byMonth := SummarizeLedger(entries, LedgerByMonth)
	if len(byMonth) != 2 {
		t.Errorf("month bucket count = %d, want 2", len(byMonth))
	}
}
