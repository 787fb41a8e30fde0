package catalog_test

import (
	"strings"
	"testing"

	"github.com/c2smotors/showroom/internal/catalog"
	"github.com/c2smotors/showroom/internal/models"
)

func TestSnapshotEmptyCatalog(t *testing.T) {
	if got := catalog.Snapshot(nil, 8); got != catalog.NoStockText {
		t.Errorf("Snapshot() = %q, want %q", got, catalog.NoStockText)
	}
}

func TestSnapshotFormatsVehicles(t *testing.T) {
	vehicles := []models.Vehicle{
		{
			Brand:        "Jeep",
			Model:        "Compass",
			Year:         2021,
			Engine:       "1.3 Turbo",
			FuelType:     "flex",
			Color:        "preto",
			MileageKM:    35000,
			Doors:        4,
			Transmission: "automatica",
			BodyType:     "suv",
			Price:        119000,
			VIN:          "VIN001AAAAAAAAAAA",
		},
	}

	got := catalog.Snapshot(vehicles, 8)

	if !strings.HasPrefix(got, "Estoque relevante:") {
		t.Errorf("Snapshot() = %q, want the stock header", got)
	}
	want := "- Jeep Compass 2021 | suv, automatica, flex, 1.3 Turbo, 4 portas, preto, 35000 km | R$ 119000.00 | VIN VIN001AAAAAAAAAAA"
	if !strings.Contains(got, want) {
		t.Errorf("Snapshot() = %q, want to contain %q", got, want)
	}
}

func TestSnapshotHonorsLimit(t *testing.T) {
	vehicles := make([]models.Vehicle, 5)
	for i := range vehicles {
		vehicles[i] = models.Vehicle{Brand: "Fiat", Model: "Argo", Year: 2020 + i}
	}

	got := catalog.Snapshot(vehicles, 3)

	if lines := strings.Count(got, "\n- "); lines != 3 {
		t.Errorf("Snapshot() listed %d vehicles, want 3", lines)
	}
}
