// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package database

import (
	"context"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/essence-shop/essence/internal/models"
)

func TestMongoFilter(t *testing.T) {
	tests := []struct {
		name    string
		filters []Filter
		want    bson.D
	}{
		{
			name: "empty",
			want: bson.D{},
		},
		{
			name:    "single",
			filters: []Filter{Eq(models.FieldActive, true)},
			want:    bson.D{{Key: "active", Value: bson.D{{Key: "$eq", Value: true}}}},
		},
		{
			name:    "two conditions on one field",
			filters: []Filter{Gte(models.FieldPriceFrom, 50), Lt(models.FieldPriceFrom, 100)},
			want: bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "price_from", Value: bson.D{{Key: "$gte", Value: 50}}}},
				bson.D{{Key: "price_from", Value: bson.D{{Key: "$lt", Value: 100}}}},
			}}},
		},
		{
			name:    "in",
			filters: []Filter{In(models.FieldCategoryIDs, []string{"c1", "c2"})},
			want:    bson.D{{Key: "category_ids", Value: bson.D{{Key: "$in", Value: bson.A{"c1", "c2"}}}}},
		},
		{
			name:    "contains escapes regex",
			filters: []Filter{Contains(models.FieldSearchText, "n°5 (eau)")},
			want: bson.D{{Key: "search_text", Value: bson.D{
				{Key: "$regex", Value: `n°5 \(eau\)`},
				{Key: "$options", Value: "i"},
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mongoFilter(tt.filters)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("mongoFilter() = %#v\nwant %#v", got, tt.want)
			}
		})
	}
}

func TestMongoSort(t *testing.T) {
	tests := []struct {
		q    Query
		want bson.D
	}{
		{Query{}, bson.D{{Key: "_id", Value: 1}}},
		{Query{Sort: "_id", Desc: true}, bson.D{{Key: "_id", Value: -1}}},
		{Query{Sort: "price_from"}, bson.D{{Key: "price_from", Value: 1}, {Key: "_id", Value: 1}}},
		{Query{Sort: "sold_count", Desc: true}, bson.D{{Key: "sold_count", Value: -1}, {Key: "_id", Value: 1}}},
	}
	for _, tt := range tests {
		if got := mongoSort(tt.q); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("mongoSort(%+v) = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestOpenMongoRequiresURIAndDatabase(t *testing.T) {
	if _, err := OpenMongo(context.Background(), MongoOptions{Database: "essence"}); err == nil {
		t.Error("OpenMongo without URI should fail")
	}
	if _, err := OpenMongo(context.Background(), MongoOptions{URI: "mongodb://localhost"}); err == nil {
		t.Error("OpenMongo without database should fail")
	}
}
