package kafka

const (
	TopicGrantCreated      = "coupon.grant.created"
	TopicGrantUsed         = "coupon.grant.used"
	TopicDefinitionExpired = "coupon.definition.expired"
)
