package featureflag

type Flag string

const (
	FlagDisableParticipantJoinBroadcast  Flag = "DISABLE_PARTICIPANT_JOIN_BROADCAST"
	FlagDisableParticipantLeaveBroadcast Flag = "DISABLE_PARTICIPANT_LEAVE_BROADCAST"
	FlagDisableEntityAddBroadcast        Flag = "DISABLE_ENTITY_ADD_BROADCAST"
	FlagDisableEntityDeleteBroadcast     Flag = "DISABLE_ENTITY_DELETE_BROADCAST"
	FlagDisableEntityUpdatePoseBroadcast Flag = "DISABLE_ENTITY_UPDATE_POSE_BROADCAST"
	FlagDisableSceneClearBroadcast       Flag = "DISABLE_SCENE_CLEAR_BROADCAST"

	// Scenes are created without the ground quadtree. Circle and rectangle
	// queries are then rejected.
	FlagDisableGroundIndex Flag = "DISABLE_GROUND_INDEX"
)

var knownFlags = []Flag{
	FlagDisableParticipantJoinBroadcast,
	FlagDisableParticipantLeaveBroadcast,
	FlagDisableEntityAddBroadcast,
	FlagDisableEntityDeleteBroadcast,
	FlagDisableEntityUpdatePoseBroadcast,
	FlagDisableSceneClearBroadcast,
	FlagDisableGroundIndex,
}
