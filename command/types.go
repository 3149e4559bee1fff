package command

// RequestType identifies a command across the boundary. Values are stable
// and never renumbered; 99 and 119 are retired.
type RequestType uint32

const (
	InvalidRequest   RequestType = 0
	CustomCommand    RequestType = 1
	GetString        RequestType = 2
	SetString        RequestType = 3
	Ping             RequestType = 4
	Info             RequestType = 5
	Del              RequestType = 6
	Select           RequestType = 7
	ConfigGet        RequestType = 8
	ConfigSet        RequestType = 9
	ConfigResetStat  RequestType = 10
	ConfigRewrite    RequestType = 11
	ClientGetName    RequestType = 12
	ClientGetRedir   RequestType = 13
	ClientId         RequestType = 14
	ClientInfo       RequestType = 15
	ClientKill       RequestType = 16
	ClientList       RequestType = 17
	ClientNoEvict    RequestType = 18
	ClientNoTouch    RequestType = 19
	ClientPause      RequestType = 20
	ClientReply      RequestType = 21
	ClientSetInfo    RequestType = 22
	ClientSetName    RequestType = 23
	ClientUnblock    RequestType = 24
	ClientUnpause    RequestType = 25
	Expire           RequestType = 26
	HashSet          RequestType = 27
	HashGet          RequestType = 28
	HashDel          RequestType = 29
	HashExists       RequestType = 30
	MGet             RequestType = 31
	MSet             RequestType = 32
	Incr             RequestType = 33
	IncrBy           RequestType = 34
	Decr             RequestType = 35
	IncrByFloat      RequestType = 36
	DecrBy           RequestType = 37
	HashGetAll       RequestType = 38
	HashMSet         RequestType = 39
	HashMGet         RequestType = 40
	HashIncrBy       RequestType = 41
	HashIncrByFloat  RequestType = 42
	LPush            RequestType = 43
	LPop             RequestType = 44
	RPush            RequestType = 45
	RPop             RequestType = 46
	LLen             RequestType = 47
	LRem             RequestType = 48
	LRange           RequestType = 49
	LTrim            RequestType = 50
	SAdd             RequestType = 51
	SRem             RequestType = 52
	SMembers         RequestType = 53
	SCard            RequestType = 54
	PExpireAt        RequestType = 55
	PExpire          RequestType = 56
	ExpireAt         RequestType = 57
	Exists           RequestType = 58
	Unlink           RequestType = 59
	TTL              RequestType = 60
	Zadd             RequestType = 61
	Zrem             RequestType = 62
	Zrange           RequestType = 63
	Zcard            RequestType = 64
	Zcount           RequestType = 65
	ZIncrBy          RequestType = 66
	ZScore           RequestType = 67
	Type             RequestType = 68
	HLen             RequestType = 69
	Echo             RequestType = 70
	ZPopMin          RequestType = 71
	Strlen           RequestType = 72
	Lindex           RequestType = 73
	ZPopMax          RequestType = 74
	XRead            RequestType = 75
	XAdd             RequestType = 76
	XReadGroup       RequestType = 77
	XAck             RequestType = 78
	XTrim            RequestType = 79
	XGroupCreate     RequestType = 80
	XGroupDestroy    RequestType = 81
	HSetNX           RequestType = 82
	SIsMember        RequestType = 83
	Hvals            RequestType = 84
	PTTL             RequestType = 85
	ZRemRangeByRank  RequestType = 86
	Persist          RequestType = 87
	ZRemRangeByScore RequestType = 88
	Time             RequestType = 89
	Zrank            RequestType = 90
	Rename           RequestType = 91
	DBSize           RequestType = 92
	Brpop            RequestType = 93
	Hkeys            RequestType = 94
	Spop             RequestType = 95
	PfAdd            RequestType = 96
	PfCount          RequestType = 97
	PfMerge          RequestType = 98
	Blpop            RequestType = 100
	LInsert          RequestType = 101
	RPushX           RequestType = 102
	LPushX           RequestType = 103
	ZMScore          RequestType = 104
	ZDiff            RequestType = 105
	ZDiffStore       RequestType = 106
	SetRange         RequestType = 107
	ZRemRangeByLex   RequestType = 108
	ZLexCount        RequestType = 109
	Append           RequestType = 110
	SUnionStore      RequestType = 111
	SDiffStore       RequestType = 112
	SInter           RequestType = 113
	SInterStore      RequestType = 114
	ZRangeStore      RequestType = 115
	GetRange         RequestType = 116
	SMove            RequestType = 117
	SMIsMember       RequestType = 118
	LastSave         RequestType = 120
	GeoAdd           RequestType = 121
	GeoHash          RequestType = 122
	ObjectEncoding   RequestType = 123
	HRandField       RequestType = 124
)

type entry struct {
	name  string
	words []string
}

var table = map[RequestType]entry{
	InvalidRequest:   {"InvalidRequest", nil},
	CustomCommand:    {"CustomCommand", nil},
	GetString:        {"GetString", []string{"GET"}},
	SetString:        {"SetString", []string{"SET"}},
	Ping:             {"Ping", []string{"PING"}},
	Info:             {"Info", []string{"INFO"}},
	Del:              {"Del", []string{"DEL"}},
	Select:           {"Select", []string{"SELECT"}},
	ConfigGet:        {"ConfigGet", []string{"CONFIG", "GET"}},
	ConfigSet:        {"ConfigSet", []string{"CONFIG", "SET"}},
	ConfigResetStat:  {"ConfigResetStat", []string{"CONFIG", "RESETSTAT"}},
	ConfigRewrite:    {"ConfigRewrite", []string{"CONFIG", "REWRITE"}},
	ClientGetName:    {"ClientGetName", []string{"CLIENT", "GETNAME"}},
	ClientGetRedir:   {"ClientGetRedir", []string{"CLIENT", "GETREDIR"}},
	ClientId:         {"ClientId", []string{"CLIENT", "ID"}},
	ClientInfo:       {"ClientInfo", []string{"CLIENT", "INFO"}},
	ClientKill:       {"ClientKill", []string{"CLIENT", "KILL"}},
	ClientList:       {"ClientList", []string{"CLIENT", "LIST"}},
	ClientNoEvict:    {"ClientNoEvict", []string{"CLIENT", "NO-EVICT"}},
	ClientNoTouch:    {"ClientNoTouch", []string{"CLIENT", "NO-TOUCH"}},
	ClientPause:      {"ClientPause", []string{"CLIENT", "PAUSE"}},
	ClientReply:      {"ClientReply", []string{"CLIENT", "REPLY"}},
	ClientSetInfo:    {"ClientSetInfo", []string{"CLIENT", "SETINFO"}},
	ClientSetName:    {"ClientSetName", []string{"CLIENT", "SETNAME"}},
	ClientUnblock:    {"ClientUnblock", []string{"CLIENT", "UNBLOCK"}},
	ClientUnpause:    {"ClientUnpause", []string{"CLIENT", "UNPAUSE"}},
	Expire:           {"Expire", []string{"EXPIRE"}},
	HashSet:          {"HashSet", []string{"HSET"}},
	HashGet:          {"HashGet", []string{"HGET"}},
	HashDel:          {"HashDel", []string{"HDEL"}},
	HashExists:       {"HashExists", []string{"HEXISTS"}},
	MGet:             {"MGet", []string{"MGET"}},
	MSet:             {"MSet", []string{"MSET"}},
	Incr:             {"Incr", []string{"INCR"}},
	IncrBy:           {"IncrBy", []string{"INCRBY"}},
	Decr:             {"Decr", []string{"DECR"}},
	IncrByFloat:      {"IncrByFloat", []string{"INCRBYFLOAT"}},
	DecrBy:           {"DecrBy", []string{"DECRBY"}},
	HashGetAll:       {"HashGetAll", []string{"HGETALL"}},
	HashMSet:         {"HashMSet", []string{"HMSET"}},
	HashMGet:         {"HashMGet", []string{"HMGET"}},
	HashIncrBy:       {"HashIncrBy", []string{"HINCRBY"}},
	HashIncrByFloat:  {"HashIncrByFloat", []string{"HINCRBYFLOAT"}},
	LPush:            {"LPush", []string{"LPUSH"}},
	LPop:             {"LPop", []string{"LPOP"}},
	RPush:            {"RPush", []string{"RPUSH"}},
	RPop:             {"RPop", []string{"RPOP"}},
	LLen:             {"LLen", []string{"LLEN"}},
	LRem:             {"LRem", []string{"LREM"}},
	LRange:           {"LRange", []string{"LRANGE"}},
	LTrim:            {"LTrim", []string{"LTRIM"}},
	SAdd:             {"SAdd", []string{"SADD"}},
	SRem:             {"SRem", []string{"SREM"}},
	SMembers:         {"SMembers", []string{"SMEMBERS"}},
	SCard:            {"SCard", []string{"SCARD"}},
	PExpireAt:        {"PExpireAt", []string{"PEXPIREAT"}},
	PExpire:          {"PExpire", []string{"PEXPIRE"}},
	ExpireAt:         {"ExpireAt", []string{"EXPIREAT"}},
	Exists:           {"Exists", []string{"EXISTS"}},
	Unlink:           {"Unlink", []string{"UNLINK"}},
	TTL:              {"TTL", []string{"TTL"}},
	Zadd:             {"Zadd", []string{"ZADD"}},
	Zrem:             {"Zrem", []string{"ZREM"}},
	Zrange:           {"Zrange", []string{"ZRANGE"}},
	Zcard:            {"Zcard", []string{"ZCARD"}},
	Zcount:           {"Zcount", []string{"ZCOUNT"}},
	ZIncrBy:          {"ZIncrBy", []string{"ZINCRBY"}},
	ZScore:           {"ZScore", []string{"ZSCORE"}},
	Type:             {"Type", []string{"TYPE"}},
	HLen:             {"HLen", []string{"HLEN"}},
	Echo:             {"Echo", []string{"ECHO"}},
	ZPopMin:          {"ZPopMin", []string{"ZPOPMIN"}},
	Strlen:           {"Strlen", []string{"STRLEN"}},
	Lindex:           {"Lindex", []string{"LINDEX"}},
	ZPopMax:          {"ZPopMax", []string{"ZPOPMAX"}},
	XRead:            {"XRead", []string{"XREAD"}},
	XAdd:             {"XAdd", []string{"XADD"}},
	XReadGroup:       {"XReadGroup", []string{"XREADGROUP"}},
	XAck:             {"XAck", []string{"XACK"}},
	XTrim:            {"XTrim", []string{"XTRIM"}},
	XGroupCreate:     {"XGroupCreate", []string{"XGROUP", "CREATE"}},
	XGroupDestroy:    {"XGroupDestroy", []string{"XGROUP", "DESTROY"}},
	HSetNX:           {"HSetNX", []string{"HSETNX"}},
	SIsMember:        {"SIsMember", []string{"SISMEMBER"}},
	Hvals:            {"Hvals", []string{"HVALS"}},
	PTTL:             {"PTTL", []string{"PTTL"}},
	ZRemRangeByRank:  {"ZRemRangeByRank", []string{"ZREMRANGEBYRANK"}},
	Persist:          {"Persist", []string{"PERSIST"}},
	ZRemRangeByScore: {"ZRemRangeByScore", []string{"ZREMRANGEBYSCORE"}},
	Time:             {"Time", []string{"TIME"}},
	Zrank:            {"Zrank", []string{"ZRANK"}},
	Rename:           {"Rename", []string{"RENAME"}},
	DBSize:           {"DBSize", []string{"DBSIZE"}},
	Brpop:            {"Brpop", []string{"BRPOP"}},
	Hkeys:            {"Hkeys", []string{"HKEYS"}},
	Spop:             {"Spop", []string{"SPOP"}},
	PfAdd:            {"PfAdd", []string{"PFADD"}},
	PfCount:          {"PfCount", []string{"PFCOUNT"}},
	PfMerge:          {"PfMerge", []string{"PFMERGE"}},
	Blpop:            {"Blpop", []string{"BLPOP"}},
	LInsert:          {"LInsert", []string{"LINSERT"}},
	RPushX:           {"RPushX", []string{"RPUSHX"}},
	LPushX:           {"LPushX", []string{"LPUSHX"}},
	ZMScore:          {"ZMScore", []string{"ZMSCORE"}},
	ZDiff:            {"ZDiff", []string{"ZDIFF"}},
	ZDiffStore:       {"ZDiffStore", []string{"ZDIFFSTORE"}},
	SetRange:         {"SetRange", []string{"SETRANGE"}},
	ZRemRangeByLex:   {"ZRemRangeByLex", []string{"ZREMRANGEBYLEX"}},
	ZLexCount:        {"ZLexCount", []string{"ZLEXCOUNT"}},
	Append:           {"Append", []string{"APPEND"}},
	SUnionStore:      {"SUnionStore", []string{"SUNIONSTORE"}},
	SDiffStore:       {"SDiffStore", []string{"SDIFFSTORE"}},
	SInter:           {"SInter", []string{"SINTER"}},
	SInterStore:      {"SInterStore", []string{"SINTERSTORE"}},
	ZRangeStore:      {"ZRangeStore", []string{"ZRANGESTORE"}},
	GetRange:         {"GetRange", []string{"GETRANGE"}},
	SMove:            {"SMove", []string{"SMOVE"}},
	SMIsMember:       {"SMIsMember", []string{"SMISMEMBER"}},
	LastSave:         {"LastSave", []string{"LASTSAVE"}},
	GeoAdd:           {"GeoAdd", []string{"GEOADD"}},
	GeoHash:          {"GeoHash", []string{"GEOHASH"}},
	ObjectEncoding:   {"ObjectEncoding", []string{"OBJECT", "ENCODING"}},
	HRandField:       {"HRandField", []string{"HRANDFIELD"}},
}
