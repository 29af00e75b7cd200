package models

import "strings"

// Collection names one of the two record tables (or sheets).
type Collection string

const (
	CollectionRentals      Collection = "alugueis"
	CollectionTransactions Collection = "transacoes"
)

var Collections = []Collection{CollectionRentals, CollectionTransactions}

// ParseCollection returns false for anything but the two known collections.
func ParseCollection(s string) (Collection, bool) {
	switch Collection(strings.ToLower(strings.TrimSpace(s))) {
	case CollectionRentals:
		return CollectionRentals, true
	case CollectionTransactions:
		return CollectionTransactions, true
	}
	return "", false
}

func (c Collection) String() string { return string(c) }
