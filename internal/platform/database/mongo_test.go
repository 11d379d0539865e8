package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("creates every collection's indexes", func(mt *mtest.T) {
		for range AllCollections {
			mt.AddMockResponses(mtest.CreateSuccessResponse())
		}

		require.NoError(t, EnsureIndexes(ctx, mt.DB))
		for _, name := range AllCollections {
			evt := mt.GetStartedEvent()
			require.NotNil(t, evt)
			assert.Equal(t, "createIndexes", evt.CommandName)
			assert.Equal(t, name, evt.Command.Lookup("createIndexes").StringValue())
		}
	})

	mt.Run("reports a conflicting index", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    86,
			Name:    "IndexKeySpecsConflict",
			Message: "An existing index has the same name as the requested index",
		}))

		err := EnsureIndexes(ctx, mt.DB)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "creating indexes on users")
	})
}
