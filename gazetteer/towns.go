package gazetteer

import (
	"sort"
	"strings"

	"property-feeds/models"
)

// Town is a gazetteer entry: the canonical display name, its region and the
// coordinates of the town centre. Only centre coordinates are ever used for
// distance work.
type Town struct {
	Name      string
	Region    models.Region
	Latitude  float64
	Longitude float64
	Aliases   []string
}

var towns = []Town{
	// Costa Blanca South and Vega Baja
	{Name: "Torrevieja", Region: models.RegionSouth, Latitude: 37.9787, Longitude: -0.6822},
	{Name: "La Mata", Region: models.RegionSouth, Latitude: 38.0224, Longitude: -0.6557},
	{Name: "Orihuela Costa", Region: models.RegionSouth, Latitude: 37.9386, Longitude: -0.7389},
	{Name: "La Zenia", Region: models.RegionSouth, Latitude: 37.9253, Longitude: -0.7267},
	{Name: "Playa Flamenca", Region: models.RegionSouth, Latitude: 37.9302, Longitude: -0.7164},
	{Name: "Cabo Roig", Region: models.RegionSouth, Latitude: 37.9140, Longitude: -0.7224},
	{Name: "Villamartin", Region: models.RegionSouth, Latitude: 37.9381, Longitude: -0.7626},
	{Name: "Campoamor", Region: models.RegionSouth, Latitude: 37.8997, Longitude: -0.7527, Aliases: []string{"Dehesa de Campoamor"}},
	{Name: "Orihuela", Region: models.RegionSouth, Latitude: 38.0848, Longitude: -0.9440},
	{Name: "Guardamar del Segura", Region: models.RegionSouth, Latitude: 38.0898, Longitude: -0.6553, Aliases: []string{"Guardamar"}},
	{Name: "Pilar de la Horadada", Region: models.RegionSouth, Latitude: 37.8660, Longitude: -0.7922, Aliases: []string{"Pilar"}},
	{Name: "Rojales", Region: models.RegionSouth, Latitude: 38.0874, Longitude: -0.7246},
	{Name: "Ciudad Quesada", Region: models.RegionSouth, Latitude: 38.0608, Longitude: -0.7283, Aliases: []string{"Quesada"}},
	{Name: "Algorfa", Region: models.RegionSouth, Latitude: 38.0596, Longitude: -0.7956},
	{Name: "San Miguel de Salinas", Region: models.RegionSouth, Latitude: 37.9795, Longitude: -0.7891},
	{Name: "Los Montesinos", Region: models.RegionSouth, Latitude: 38.0279, Longitude: -0.7440},
	{Name: "Benijofar", Region: models.RegionSouth, Latitude: 38.0770, Longitude: -0.7380},
	{Name: "Formentera del Segura", Region: models.RegionSouth, Latitude: 38.0863, Longitude: -0.7473},
	{Name: "Almoradi", Region: models.RegionSouth, Latitude: 38.1093, Longitude: -0.7913},
	{Name: "Santa Pola", Region: models.RegionSouth, Latitude: 38.1916, Longitude: -0.5658, Aliases: []string{"Gran Alacant"}},
	{Name: "Elche", Region: models.RegionSouth, Latitude: 38.2699, Longitude: -0.6983, Aliases: []string{"Elx"}},
	{Name: "Alicante", Region: models.RegionSouth, Latitude: 38.3452, Longitude: -0.4810, Aliases: []string{"Alacant"}},
	{Name: "San Pedro del Pinatar", Region: models.RegionSouth, Latitude: 37.8350, Longitude: -0.7910},
	{Name: "San Javier", Region: models.RegionSouth, Latitude: 37.8063, Longitude: -0.8373},
	{Name: "Los Alcazares", Region: models.RegionSouth, Latitude: 37.7444, Longitude: -0.8506},

	// Costa Blanca North
	{Name: "El Campello", Region: models.RegionNorth, Latitude: 38.4286, Longitude: -0.3974, Aliases: []string{"Campello"}},
	{Name: "Villajoyosa", Region: models.RegionNorth, Latitude: 38.5078, Longitude: -0.2334, Aliases: []string{"La Vila Joiosa"}},
	{Name: "Finestrat", Region: models.RegionNorth, Latitude: 38.5670, Longitude: -0.2122},
	{Name: "Benidorm", Region: models.RegionNorth, Latitude: 38.5411, Longitude: -0.1225},
	{Name: "La Nucia", Region: models.RegionNorth, Latitude: 38.6142, Longitude: -0.1236},
	{Name: "Polop", Region: models.RegionNorth, Latitude: 38.6226, Longitude: -0.1299},
	{Name: "Alfas del Pi", Region: models.RegionNorth, Latitude: 38.5806, Longitude: -0.1036, Aliases: []string{"L'Alfas del Pi", "Albir", "El Albir"}},
	{Name: "Altea", Region: models.RegionNorth, Latitude: 38.5989, Longitude: -0.0514},
	{Name: "Calpe", Region: models.RegionNorth, Latitude: 38.6446, Longitude: 0.0445, Aliases: []string{"Calp"}},
	{Name: "Benissa", Region: models.RegionNorth, Latitude: 38.7146, Longitude: 0.0490},
	{Name: "Moraira", Region: models.RegionNorth, Latitude: 38.6889, Longitude: 0.1395},
	{Name: "Teulada", Region: models.RegionNorth, Latitude: 38.7292, Longitude: 0.1036},
	{Name: "Benitachell", Region: models.RegionNorth, Latitude: 38.7333, Longitude: 0.1417, Aliases: []string{"Poble Nou de Benitatxell", "Benitatxell", "Cumbre del Sol"}},
	{Name: "Javea", Region: models.RegionNorth, Latitude: 38.7893, Longitude: 0.1661, Aliases: []string{"Xabia"}},
	{Name: "Denia", Region: models.RegionNorth, Latitude: 38.8408, Longitude: 0.1057},
	{Name: "Pedreguer", Region: models.RegionNorth, Latitude: 38.7932, Longitude: 0.0343},
	{Name: "Els Poblets", Region: models.RegionNorth, Latitude: 38.8603, Longitude: 0.0836},
}

type townKey struct {
	folded string
	town   *Town
}

var (
	// exact folded name or alias -> town
	townIndex = map[string]*Town{}
	// every folded name/alias, longest first, for phrase matching
	townKeys []townKey
)

func init() {
	for i := range towns {
		t := &towns[i]
		for _, name := range append([]string{t.Name}, t.Aliases...) {
			f := Fold(name)
			townIndex[f] = t
			townKeys = append(townKeys, townKey{folded: f, town: t})
		}
	}
	sort.SliceStable(townKeys, func(i, j int) bool {
		if len(townKeys[i].folded) != len(townKeys[j].folded) {
			return len(townKeys[i].folded) > len(townKeys[j].folded)
		}
		return townKeys[i].folded < townKeys[j].folded
	})
}

// LookupTown resolves a provider town string such as "Torrevieja, Alicante"
// or "Xàbia". An exact match on the first comma-separated segment wins;
// otherwise the longest known name contained in the string is used.
func LookupTown(name string) (Town, bool) {
	first := name
	if i := strings.IndexAny(name, ",(/"); i > 0 {
		first = name[:i]
	}
	if t, ok := townIndex[Fold(first)]; ok {
		return *t, true
	}

	folded := Fold(name)
	for _, k := range townKeys {
		if containsPhrase(folded, k.folded) {
			return *k.town, true
		}
	}
	return Town{}, false
}
