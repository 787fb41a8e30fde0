package catalog

import (
	"fmt"
	"strings"

	"github.com/c2smotors/showroom/internal/models"
)

// NoStockText is the snapshot body when nothing in the catalog matched.
const NoStockText = "Nenhum veículo correspondente encontrado no estoque."

// Snapshot builds a readable stock excerpt for the reply generator to use as
// context. At most limit vehicles are listed.
func Snapshot(vehicles []models.Vehicle, limit int) string {
	if limit > 0 && len(vehicles) > limit {
		vehicles = vehicles[:limit]
	}
	if len(vehicles) == 0 {
		return NoStockText
	}

	var sb strings.Builder
	sb.WriteString("Estoque relevante:")
	for _, v := range vehicles {
		sb.WriteString(fmt.Sprintf(
			"\n- %s %s %d | %s, %s, %s, %s, %d portas, %s, %d km | R$ %.2f | VIN %s",
			v.Brand, v.Model, v.Year, v.BodyType, v.Transmission,
			v.FuelType, v.Engine, v.Doors, v.Color, v.MileageKM, v.Price, v.VIN,
		))
	}
	return sb.String()
}
