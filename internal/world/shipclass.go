package world

// ShipClass identifies the hull picked by the style base bits
type ShipClass int

const (
	ClassFighter ShipClass = 0
	ClassTank    ShipClass = 1
	ClassScout   ShipClass = 2
	ClassLancer  ShipClass = 3
)

// ShipClassDef holds the stats for a ship class
type ShipClassDef struct {
	MaxHP      int32
	MaxShields int32
	Thrust     float64 // units/s² applied per held direction
	MaxSpeed   float64
	TurnSpeed  float64 // rad/s toward the rotation target
	FireCD     float64
	BulletDmg  int32
	BulletSpd  float64
	Radius     float64
}

var ShipClasses = [4]ShipClassDef{
	// Fighter: balanced
	{
		MaxHP: 100, MaxShields: 50, Thrust: 600, MaxSpeed: 350,
		TurnSpeed: 8, FireCD: 0.15, BulletDmg: 10, BulletSpd: 800, Radius: 20,
	},
	// Tank: slow, heavily shielded
	{
		MaxHP: 160, MaxShields: 100, Thrust: 380, MaxSpeed: 240,
		TurnSpeed: 6, FireCD: 0.3, BulletDmg: 18, BulletSpd: 700, Radius: 25,
	},
	// Scout: fast, fragile, rapid fire
	{
		MaxHP: 60, MaxShields: 30, Thrust: 800, MaxSpeed: 480,
		TurnSpeed: 10, FireCD: 0.1, BulletDmg: 7, BulletSpd: 900, Radius: 16,
	},
	// Lancer: long range, slow cadence
	{
		MaxHP: 90, MaxShields: 40, Thrust: 520, MaxSpeed: 320,
		TurnSpeed: 7, FireCD: 0.45, BulletDmg: 30, BulletSpd: 1200, Radius: 20,
	},
}

// GetClassDef returns the definition for a ship class
func GetClassDef(class ShipClass) ShipClassDef {
	if class < 0 || int(class) >= len(ShipClasses) {
		return ShipClasses[ClassFighter]
	}
	return ShipClasses[class]
}

// ClassOf returns the class definition selected by a style byte
func ClassOf(s Style) ShipClassDef {
	return GetClassDef(ShipClass(s.Base()))
}
