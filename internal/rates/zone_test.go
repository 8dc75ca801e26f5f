package rates

import "testing"

func TestZoneMatchesAddress(t *testing.T) {
	zone := Zone{
		Countries: []string{"Bangladesh"},
		States:    []string{"Dhaka"},
	}
	addr := Address{Country: "Bangladesh", State: "Dhaka", City: "Dhaka", PostalCode: "1207"}
	if !zone.MatchesAddress(addr) {
		t.Fatal("expected address to match zone")
	}

	addr.State = "Chittagong"
	if zone.MatchesAddress(addr) {
		t.Fatal("state outside the zone list must not match")
	}
}

func TestZoneEmptyCriteriaMatchEverything(t *testing.T) {
	zone := Zone{}
	if !zone.MatchesAddress(Address{Country: "Anywhere", PostalCode: "0000"}) {
		t.Fatal("zone with no criteria should match any address")
	}
}

func TestZonePostalPrefixes(t *testing.T) {
	zone := Zone{PostalCodes: []string{"12", "34"}}
	if !zone.MatchesAddress(Address{PostalCode: "1207"}) {
		t.Fatal("postal code 1207 should match prefix 12")
	}
	if zone.MatchesAddress(Address{PostalCode: "5600"}) {
		t.Fatal("postal code 5600 should not match any listed prefix")
	}
}

func TestZoneCountryMatchIsCaseInsensitive(t *testing.T) {
	zone := Zone{Countries: []string{"bangladesh"}}
	if !zone.MatchesAddress(Address{Country: "Bangladesh"}) {
		t.Fatal("country matching should ignore case")
	}
}
