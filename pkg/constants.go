package shared

const (
	ProjectID = "fitglue-project" // Can be overridden by GOOGLE_CLOUD_PROJECT

	TopicSocialActivity = "topic-social-activity"

	CollectionPosts         = "posts"
	CollectionReactions     = "reactions"
	CollectionComments      = "comments"
	CollectionActivity      = "activity"
	CollectionNotifications = "notifications"
	CollectionExecutions    = "executions"

	SecretPageTokenKey = "page_token_key"
)
