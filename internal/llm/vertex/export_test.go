package vertex

var (
	GenerationConfig = generationConfig
	SystemText       = systemText
	UserParts        = userParts
	ToResponse       = toResponse
)
