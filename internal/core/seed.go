package core

import "time"

const day = 24 * time.Hour

// SeedBills returns the example bills used to populate an empty ledger.
// IDs are left zero; the store assigns them.
func SeedBills(now time.Time) []Bill {
	at := func(daysAgo int) int64 {
		return now.Add(-time.Duration(daysAgo) * day).UnixMilli()
	}
	return []Bill{
		{Type: Expense, Amount: Cents(2550), Category: "餐饮", Remark: "午餐", Timestamp: at(0)},
		{Type: Expense, Amount: Cents(1200), Category: "交通", Remark: "打车", Timestamp: at(1)},
		{Type: Income, Amount: Cents(500000), Category: "工资", Remark: "三月工资", Timestamp: at(2)},
		{Type: Expense, Amount: Cents(12000), Category: "购物", Remark: "超市采购", Timestamp: at(3)},
		{Type: Expense, Amount: Cents(4500), Category: "餐饮", Remark: "晚餐", Timestamp: at(4)},
	}
}
