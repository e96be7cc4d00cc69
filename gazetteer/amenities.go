package gazetteer

import "property-feeds/models"

// MaxRadiusKm is the furthest an amenity of each category may be from a town
// centre and still be reported as nearby.
var MaxRadiusKm = map[models.AmenityCategory]float64{
	models.AmenityBeach:    15,
	models.AmenityGolf:     30,
	models.AmenityMarina:   25,
	models.AmenityShopping: 25,
	models.AmenityHospital: 40,
	models.AmenityAirport:  80,
}

var amenities = []models.AmenityLocation{
	// shared
	{Name: "Alicante-Elche Airport", Category: models.AmenityAirport, Latitude: 38.2822, Longitude: -0.5582},
	{Name: "Region de Murcia International Airport", Category: models.AmenityAirport, Latitude: 37.8030, Longitude: -1.1250},
	{Name: "Valencia Airport", Category: models.AmenityAirport, Latitude: 39.4893, Longitude: -0.4816},

	// South
	{Name: "Playa del Cura", Category: models.AmenityBeach, Latitude: 37.9764, Longitude: -0.6822, Region: models.RegionSouth},
	{Name: "Playa de La Mata", Category: models.AmenityBeach, Latitude: 38.0232, Longitude: -0.6525, Region: models.RegionSouth},
	{Name: "Playa Flamenca Beach", Category: models.AmenityBeach, Latitude: 37.9318, Longitude: -0.7137, Region: models.RegionSouth},
	{Name: "Playa La Zenia", Category: models.AmenityBeach, Latitude: 37.9257, Longitude: -0.7204, Region: models.RegionSouth},
	{Name: "Playa de Campoamor", Category: models.AmenityBeach, Latitude: 37.8990, Longitude: -0.7470, Region: models.RegionSouth},
	{Name: "Playa Centro Guardamar", Category: models.AmenityBeach, Latitude: 38.0894, Longitude: -0.6500, Region: models.RegionSouth},
	{Name: "Playa Lisa Santa Pola", Category: models.AmenityBeach, Latitude: 38.1960, Longitude: -0.5695, Region: models.RegionSouth},
	{Name: "La Finca Golf", Category: models.AmenityGolf, Latitude: 38.0435, Longitude: -0.7870, Region: models.RegionSouth},
	{Name: "Las Colinas Golf", Category: models.AmenityGolf, Latitude: 37.9626, Longitude: -0.8092, Region: models.RegionSouth},
	{Name: "Villamartin Golf", Category: models.AmenityGolf, Latitude: 37.9361, Longitude: -0.7643, Region: models.RegionSouth},
	{Name: "Las Ramblas Golf", Category: models.AmenityGolf, Latitude: 37.9427, Longitude: -0.7695, Region: models.RegionSouth},
	{Name: "Real Club de Golf Campoamor", Category: models.AmenityGolf, Latitude: 37.9316, Longitude: -0.7835, Region: models.RegionSouth},
	{Name: "Vistabella Golf", Category: models.AmenityGolf, Latitude: 38.0279, Longitude: -0.8466, Region: models.RegionSouth},
	{Name: "La Marquesa Golf", Category: models.AmenityGolf, Latitude: 38.0735, Longitude: -0.7247, Region: models.RegionSouth},
	{Name: "Lo Romero Golf", Category: models.AmenityGolf, Latitude: 37.8933, Longitude: -0.7921, Region: models.RegionSouth},
	{Name: "Alicante Golf", Category: models.AmenityGolf, Latitude: 38.3681, Longitude: -0.4324, Region: models.RegionSouth},
	{Name: "La Zenia Boulevard", Category: models.AmenityShopping, Latitude: 37.9267, Longitude: -0.7303, Region: models.RegionSouth},
	{Name: "Habaneras Shopping Centre", Category: models.AmenityShopping, Latitude: 37.9880, Longitude: -0.6848, Region: models.RegionSouth},
	{Name: "Ociopia Orihuela", Category: models.AmenityShopping, Latitude: 38.0766, Longitude: -0.9526, Region: models.RegionSouth},
	{Name: "Marina Salinas Torrevieja", Category: models.AmenityMarina, Latitude: 37.9735, Longitude: -0.6865, Region: models.RegionSouth},
	{Name: "Puerto Deportivo Cabo Roig", Category: models.AmenityMarina, Latitude: 37.9125, Longitude: -0.7195, Region: models.RegionSouth},
	{Name: "Puerto Deportivo Campoamor", Category: models.AmenityMarina, Latitude: 37.8989, Longitude: -0.7520, Region: models.RegionSouth},
	{Name: "Marina de las Dunas", Category: models.AmenityMarina, Latitude: 38.1073, Longitude: -0.6494, Region: models.RegionSouth},
	{Name: "Club Nautico Santa Pola", Category: models.AmenityMarina, Latitude: 38.1887, Longitude: -0.5630, Region: models.RegionSouth},
	{Name: "Hospital Universitario de Torrevieja", Category: models.AmenityHospital, Latitude: 38.0056, Longitude: -0.6829, Region: models.RegionSouth},
	{Name: "Quironsalud Torrevieja", Category: models.AmenityHospital, Latitude: 37.9844, Longitude: -0.6922, Region: models.RegionSouth},
	{Name: "Hospital Vega Baja", Category: models.AmenityHospital, Latitude: 38.1031, Longitude: -0.8874, Region: models.RegionSouth},
	{Name: "Hospital General Universitario de Elche", Category: models.AmenityHospital, Latitude: 38.2664, Longitude: -0.7094, Region: models.RegionSouth},

	// North
	{Name: "Playa de Levante Benidorm", Category: models.AmenityBeach, Latitude: 38.5371, Longitude: -0.1183, Region: models.RegionNorth},
	{Name: "Playa de Poniente Benidorm", Category: models.AmenityBeach, Latitude: 38.5332, Longitude: -0.1455, Region: models.RegionNorth},
	{Name: "Playa del Albir", Category: models.AmenityBeach, Latitude: 38.5727, Longitude: -0.0699, Region: models.RegionNorth},
	{Name: "Playa de la Fossa", Category: models.AmenityBeach, Latitude: 38.6542, Longitude: 0.0684, Region: models.RegionNorth},
	{Name: "Playa de l'Ampolla", Category: models.AmenityBeach, Latitude: 38.6889, Longitude: 0.1350, Region: models.RegionNorth},
	{Name: "Playa del Arenal Javea", Category: models.AmenityBeach, Latitude: 38.7740, Longitude: 0.1860, Region: models.RegionNorth},
	{Name: "Les Marines Denia", Category: models.AmenityBeach, Latitude: 38.8620, Longitude: 0.0530, Region: models.RegionNorth},
	{Name: "Club de Golf Don Cayo", Category: models.AmenityGolf, Latitude: 38.6150, Longitude: -0.0780, Region: models.RegionNorth},
	{Name: "Villaitana Golf", Category: models.AmenityGolf, Latitude: 38.5640, Longitude: -0.1643, Region: models.RegionNorth},
	{Name: "Puig Campana Golf", Category: models.AmenityGolf, Latitude: 38.5635, Longitude: -0.1989, Region: models.RegionNorth},
	{Name: "Club de Golf Ifach", Category: models.AmenityGolf, Latitude: 38.7132, Longitude: 0.0858, Region: models.RegionNorth},
	{Name: "Club de Golf Javea", Category: models.AmenityGolf, Latitude: 38.7747, Longitude: 0.1408, Region: models.RegionNorth},
	{Name: "La Sella Golf", Category: models.AmenityGolf, Latitude: 38.8176, Longitude: 0.0430, Region: models.RegionNorth},
	{Name: "La Marina Shopping Centre", Category: models.AmenityShopping, Latitude: 38.5570, Longitude: -0.1700, Region: models.RegionNorth},
	{Name: "Portal de la Marina", Category: models.AmenityShopping, Latitude: 38.8233, Longitude: 0.0167, Region: models.RegionNorth},
	{Name: "Puerto de Altea", Category: models.AmenityMarina, Latitude: 38.5935, Longitude: -0.0490, Region: models.RegionNorth},
	{Name: "Marina Greenwich", Category: models.AmenityMarina, Latitude: 38.6200, Longitude: 0.0220, Region: models.RegionNorth},
	{Name: "Puerto de Calpe", Category: models.AmenityMarina, Latitude: 38.6355, Longitude: 0.0720, Region: models.RegionNorth},
	{Name: "Club Nautico Moraira", Category: models.AmenityMarina, Latitude: 38.6860, Longitude: 0.1350, Region: models.RegionNorth},
	{Name: "Puerto de Javea", Category: models.AmenityMarina, Latitude: 38.7955, Longitude: 0.1858, Region: models.RegionNorth},
	{Name: "Marina de Denia", Category: models.AmenityMarina, Latitude: 38.8430, Longitude: 0.1110, Region: models.RegionNorth},
	{Name: "Hospital Marina Baixa", Category: models.AmenityHospital, Latitude: 38.5089, Longitude: -0.2377, Region: models.RegionNorth},
	{Name: "Hospital Clinica Benidorm", Category: models.AmenityHospital, Latitude: 38.5420, Longitude: -0.1310, Region: models.RegionNorth},
	{Name: "Hospital de Denia", Category: models.AmenityHospital, Latitude: 38.8297, Longitude: 0.0958, Region: models.RegionNorth},
}

// Amenities returns the amenity candidates for region: every amenity in that
// region plus the shared ones. An empty region returns the whole gazetteer.
func Amenities(region models.Region) []models.AmenityLocation {
	out := make([]models.AmenityLocation, 0, len(amenities))
	for _, a := range amenities {
		if region == "" || a.Region == "" || a.Region == region {
			out = append(out, a)
		}
	}
	return out
}
