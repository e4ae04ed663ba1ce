package classifier

// dictionary maps normalized nameplates to their base category. Nameplates
// whose category depends on body style or gearbox (Clio, Golf, Fiat 500, ...)
// live in rules.yaml instead.
var dictionary = map[string]string{
	// mini
	"hyundai i10":    Mini,
	"fiat panda":     Mini,
	"suzuki celerio": Mini,
	"smart fortwo":   Mini,
	"smart forfour":  Mini,

	// economy
	"peugeot 208":     Economy,
	"opel corsa":      Economy,
	"seat ibiza":      Economy,
	"volkswagen polo": Economy,
	"ford fiesta":     Economy,
	"nissan micra":    Economy,
	"hyundai i20":     Economy,
	"audi a1":         Economy,
	"dacia sandero":   Economy,
	"dacia logan":     Economy,
	"skoda fabia":     Economy,
	"kia rio":         Economy,
	"mazda 2":         Economy,
	"honda jazz":      Economy,
	"suzuki swift":    Economy,

	// suv
	"seat arona":          SUV,
	"hyundai kona":        SUV,
	"hyundai kauai":       SUV,
	"hyundai bayon":       SUV,
	"nissan juke":         SUV,
	"volkswagen taigo":    SUV,
	"ford puma":           SUV,
	"kia stonic":          SUV,
	"ford ecosport":       SUV,
	"ford eco sport":      SUV,
	"opel crossland":      SUV,
	"opel crossland x":    SUV,
	"opel mokka":          SUV,
	"dacia duster":        SUV,
	"renault captur":      SUV,
	"suzuki vitara":       SUV,
	"jeep avenger":        SUV,
	"volkswagen tiguan":   SUV,
	"volkswagen t-cross":  SUV,
	"volkswagen t cross":  SUV,
	"volkswagen tcross":   SUV,
	"ds 4":                SUV,
	"ds4":                 SUV,
	"skoda karoq":         SUV,
	"ford kuga":           SUV,
	"jeep renegade":       SUV,
	"renault arkana":      SUV,
	"toyota rav4":         SUV,
	"toyota rav 4":        SUV,
	"cupra formentor":     SUV,
	"toyota yaris cross":  SUV,
	"citroen c5 aircross": SUV,
	"toyota c-hr":         SUV,
	"toyota chr":          SUV,
	"toyota c hr":         SUV,

	// crossover
	"kia sportage":    Crossover,
	"hyundai tucson":  Crossover,
	"seat ateca":      Crossover,
	"mazda cx-3":      Crossover,
	"mazda cx3":       Crossover,
	"mazda cx 3":      Crossover,
	"renault austral": Crossover,

	// premium
	"audi a3":            Premium,
	"audi q3":            Premium,
	"bmw x2":             Premium,
	"range rover evoque": Premium,
	"volvo xc90":         Premium,

	// estate
	"skoda octavia":     StationWagon,
	"skoda scala":       StationWagon,
	"volkswagen passat": StationWagon,
	"peugeot 508":       StationWagon,
	"hyundai i30":       StationWagon,
	"opel astra":        StationWagon,
	"fiat 500l":         StationWagon,

	// 7 seats
	"dacia jogger":          SevenSeater,
	"renault grand scenic":  SevenSeater,
	"opel zafira":           SevenSeater,
	"volkswagen touran":     SevenSeater,
	"volkswagen multivan":   SevenSeater,
	"peugeot rifter":        SevenSeater,
	"mercedes glb":          SevenSeater,
	"citroen grand picasso": SevenSeater,

	// 9 seats
	"ford transit":           NineSeater,
	"ford tourneo custom":    NineSeater,
	"renault trafic":         NineSeater,
	"opel vivaro":            NineSeater,
	"peugeot traveller":      NineSeater,
	"citroen spacetourer":    NineSeater,
	"mercedes vito":          NineSeater,
	"volkswagen transporter": NineSeater,
	"toyota proace":          NineSeater,
	"fiat talento":           NineSeater,
}
