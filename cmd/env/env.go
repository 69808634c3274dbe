package env

// Prefix is the env-var prefix shared by all subcommands
const Prefix = "RATES"

const (
	MongoURISuffix      = "_MONGO_URI"
	MongoDatabaseSuffix = "_MONGO_DB"

	RedisAddrSuffix     = "_REDIS_ADDR"
	RedisPasswordSuffix = "_REDIS_PASSWORD"
)
