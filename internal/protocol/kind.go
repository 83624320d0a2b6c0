package protocol

// Kind tags the concrete payload carried by an envelope's message body.
// Serialized as a SCREAMING_SNAKE_CASE string on the wire.
type Kind string

const (
	KindFirstContact            Kind = "FIRST_CONTACT"
	KindStartGame               Kind = "START_GAME"
	KindMoveTankCommand         Kind = "MOVE_TANK_COMMAND"
	KindRotateTankBodyCommand   Kind = "ROTATE_TANK_BODY_COMMAND"
	KindRotateTankTurretCommand Kind = "ROTATE_TANK_TURRET_COMMAND"
	KindShootCommand            Kind = "SHOOT_COMMAND"
	KindSimpleText              Kind = "SIMPLE_TEXT"

	KindGameStarts         Kind = "GAME_STARTS"
	KindGameState          Kind = "GAME_STATE"
	KindFlagGotPickedUp    Kind = "FLAG_GOT_PICKED_UP"
	KindFlagGotDropped     Kind = "FLAG_GOT_DROPPED"
	KindFlagReturnedInBase Kind = "FLAG_RETURNED_IN_BASE"
	KindTeamScored         Kind = "TEAM_SCORED"
	KindMessageError       Kind = "MESSAGE_ERROR"
	KindClientDied         Kind = "CLIENT_DIED"
)

// uniqueKinds are message kinds declared "unique": duplicates within a
// single ingress batch collapse to the latest occurrence.
var uniqueKinds = map[Kind]bool{
	KindMoveTankCommand:         true,
	KindRotateTankBodyCommand:   true,
	KindRotateTankTurretCommand: true,
}

// IsUnique reports whether k is subject to duplicate coalescing.
func IsUnique(k Kind) bool { return uniqueKinds[k] }
