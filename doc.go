// Package shardvault stores user files redundantly across multiple independent
// blob storage locations. An uploaded file is Reed-Solomon encoded into data and
// parity shards, each shard written to a distinct backend. Retrieval reconstructs
// the file from any sufficient subset of surviving shards and silently rewrites
// shards found missing or corrupted (self-healing).
//
// The root package holds the shared types, the error taxonomy, the bounded task
// runner and the Vault orchestrator. Concrete backends live in subpackages:
// fs (local drives), aws_s3 (S3 compatible object stores), cassandra (shard
// metadata), redis (caching). The erasure package wraps the Reed-Solomon codec.
// The restapi package surfaces the Vault over HTTP.
package shardvault
