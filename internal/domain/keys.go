package domain

// KeyPrefix namespaces every key this service writes to the KV store.
const KeyPrefix = "reag:"
