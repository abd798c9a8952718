package core

const UnassignedManager = "unassigned"

type SummaryKey string

const (
	ByClient   SummaryKey = "client"
	ByManager  SummaryKey = "manager"
	ByCategory SummaryKey = "category"
	ByMonth    SummaryKey = "month"
)

// Bucket is one row of a task summary.
type Bucket struct {
	Key   string
	Count int
	Hours Hours
	Price Money
}

// LedgerBucket is one row of a ledger summary.
type LedgerBucket struct {
	Key   string
	Count int
	Total Money
}

// SummarizeTasks partitions tasks by the given key and accumulates count,
// hours and price per bucket, in first-seen order.
//
// For the manager key a task's price and hours are split evenly across its
// managers; the integer remainder of the price division is credited to the
// first listed manager so the bucket totals reconcile exactly with the
// underlying task totals. Tasks without managers land in the "unassigned"
// bucket.
func SummarizeTasks(tasks []Task, key SummaryKey) []Bucket {
	index := make(map[string]int)
	var buckets []Bucket

	add := func(k string, count int, hours Hours, price Money) {
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, Bucket{Key: k})
		}
		buckets[i].Count += count
		buckets[i].Hours += hours
		buckets[i].Price.Won += price.Won
	}

	for _, t := range tasks {
		switch key {
		case ByManager:
			managers := NormalizeManagers(t.Managers)
			if len(managers) == 0 {
				add(UnassignedManager, 1, t.Hours, t.Price)
				continue
			}
			n := int64(len(managers))
			priceShare := t.Price.Won / n
			priceRem := t.Price.Won - priceShare*n
			hoursShare := Hours(int64(t.Hours) / n)
			hoursRem := t.Hours - hoursShare*Hours(n)
			for i, m := range managers {
				price := priceShare
				hours := hoursShare
				if i == 0 {
					price += priceRem
					hours += hoursRem
				}
				add(m, 1, hours, Money{Won: price})
			}
		case ByClient:
			add(t.ClientName, 1, t.Hours, t.Price)
		case ByCategory:
			add(string(t.Category), 1, t.Hours, t.Price)
		case ByMonth:
			add(t.TaskDate.Format("2006-01"), 1, t.Hours, t.Price)
		}
	}

	return buckets
}

type LedgerKey string

const (
	LedgerByKind  LedgerKey = "kind"
	LedgerByMonth LedgerKey = "month"
	LedgerByUser  LedgerKey = "user"
)

// SummarizeLedger partitions ledger entries by kind, month or participant,
// in first-seen order. The user key accumulates each participant's signed
// amounts across entries; the other keys accumulate entry totals.
func SummarizeLedger(entries []LedgerEntry, key LedgerKey) []LedgerBucket {
	index := make(map[string]int)
	var buckets []LedgerBucket

	add := func(k string, count int, won int64) {
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, LedgerBucket{Key: k})
		}
		buckets[i].Count += count
		buckets[i].Total.Won += won
	}

	for _, e := range entries {
		switch key {
		case LedgerByKind:
			add(e.Kind, 1, e.Total().Won)
		case LedgerByMonth:
			add(e.Date.Format("2006-01"), 1, e.Total().Won)
		case LedgerByUser:
			for _, ua := range e.Amounts {
				add(ua.User, 1, ua.Amount.Won)
			}
		}
	}

	return buckets
}
